package libroft

import (
	"github.com/2x3systems/roft/libroft/graph"
	"github.com/plan-systems/klog"
	"gonum.org/v1/gonum/spatial/r3"
)

// Blob is the content of a blob graph node: a cluster of line graph nodes colored as one unit.
type Blob struct {
	Members []int // line graph node indices, seed first
}

// NumAdjElements returns the number of (member of blob, member of other) pairs adjacent in E.
func (blob *Blob) NumAdjElements(E *graph.Graph[Edge], other *Blob) int {
	count := 0
	for _, e1 := range blob.Members {
		for _, e2 := range other.Members {
			if E.IsAdj(e1, e2) {
				count++
			}
		}
	}
	return count
}

// DisconnectAdjElements removes every adjacency in E between a member of blob and a member of other.
func (blob *Blob) DisconnectAdjElements(E *graph.Graph[Edge], other *Blob) {
	for _, e1 := range blob.Members {
		for _, e2 := range other.Members {
			E.Disconnect(e1, e2)
		}
	}
}

// BuildBlobGraph clusters the line graph into blobs and links blobs that share enough adjacent elements.
//
// Line graph nodes are visited in order; each one not yet claimed seeds a blob that absorbs every unclaimed
// node within dist hops of it.  Two blobs are linked if more than minConnections pairs of their members are
// adjacent.  Otherwise the blobs are independent as far as coloring goes, and if sever is set the
// element-level adjacency between them is removed from the line graph as well.
func (mg *MeshGraph) BuildBlobGraph(dist, minConnections uint32, sever bool) {
	E := &mg.Edges
	B := &mg.Blobs
	*B = graph.Graph[Blob]{}

	mg.blobOf = make([]int, E.Len())
	E.UnmarkAll()

	tr := graph.NewTraversal()
	withinDist := func(_ int, d uint32) bool {
		return d <= dist
	}

	var found []int
	for e := range E.Nodes {
		if E.IsMarked(e) {
			continue
		}
		E.Mark(e)
		members := []int{e}

		found = E.DistantNodes(tr, e, dist, withinDist, found[:0])
		for _, n := range found {
			if !E.IsMarked(n) {
				E.Mark(n)
				members = append(members, n)
			}
		}

		bi := B.Add(Blob{
			Members: members,
		})
		for _, m := range members {
			mg.blobOf[m] = bi
		}
	}

	// Only blobs reachable through a member's adjacency can share adjacent elements.
	linked, pruned := 0, 0
	var candidates []int
	for bi := range B.Nodes {
		candidates = mg.neighborBlobs(bi, candidates[:0])
		for _, bj := range candidates {
			if bj <= bi {
				continue
			}
			b1, b2 := &B.Nodes[bi].Content, &B.Nodes[bj].Content
			if b1.NumAdjElements(E, b2) > int(minConnections) {
				B.Connect(bi, bj)
				linked++
			} else {
				if sever {
					b1.DisconnectAdjElements(E, b2)
				}
				pruned++
			}
		}
	}

	klog.V(2).Infof("blob graph: %d blobs from %d edges, %d links, %d pruned", B.Len(), E.Len(), linked, pruned)
}

// neighborBlobs appends the distinct blobs, other than bi, holding an element adjacent to a member of bi.
func (mg *MeshGraph) neighborBlobs(bi int, out []int) []int {
	E := &mg.Edges
	for _, m := range mg.Blobs.Nodes[bi].Content.Members {
		for _, n := range E.Nodes[m].Adj {
			bj := mg.blobOf[n]
			if bj != bi && !containsInt(out, bj) {
				out = append(out, bj)
			}
		}
	}
	return out
}

// BlobOf returns the index of the blob holding line graph node e, or -1 if no blob graph was built.
func (mg *MeshGraph) BlobOf(e int) int {
	if e < 0 || e >= len(mg.blobOf) {
		return -1
	}
	return mg.blobOf[e]
}

// EdgeCenter returns the midpoint of line graph node e.
func (mg *MeshGraph) EdgeCenter(e int) r3.Vec {
	edge := mg.Edges.Nodes[e].Content
	p1 := mg.Vertices.Nodes[edge.V1].Content.Pos
	p2 := mg.Vertices.Nodes[edge.V2].Content.Pos
	return r3.Scale(0.5, r3.Add(p1, p2))
}

// BlobCenter returns the mean of the member midpoints of blob bi.
func (mg *MeshGraph) BlobCenter(bi int) r3.Vec {
	var sum r3.Vec
	members := mg.Blobs.Nodes[bi].Content.Members
	for _, e := range members {
		sum = r3.Add(sum, mg.EdgeCenter(e))
	}
	return r3.Scale(1/float64(len(members)), sum)
}

func containsInt(list []int, x int) bool {
	for _, v := range list {
		if v == x {
			return true
		}
	}
	return false
}
