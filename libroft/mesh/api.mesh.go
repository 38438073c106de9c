// Package mesh supplies input meshes: a Wavefront OBJ reader, a quad grid generator and mesh fingerprints.
package mesh

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/2x3systems/roft/roft"
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// ParseOBJ reads the vertices and faces of an OBJ document; polygons are fan-triangulated and
// all other statements are ignored.
func ParseOBJ(r io.Reader) (*roft.Mesh, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseOBJBytes("", src)
}

// ReadOBJFile parses the OBJ file at pathname.
func ReadOBJFile(pathname string) (*roft.Mesh, error) {
	src, err := os.ReadFile(pathname)
	if err != nil {
		return nil, err
	}
	return ParseOBJBytes(pathname, src)
}

// ParseOBJBytes parses an OBJ document held in memory; filename is only used in error messages.
func ParseOBJBytes(filename string, src []byte) (*roft.Mesh, error) {
	// every statement is newline terminated, including the last one
	if n := len(src); n == 0 || src[n-1] != '\n' {
		src = append(src[:n:n], '\n')
	}

	ast, err := sParseOBJ.ParseBytes(filename, src)
	if err != nil {
		return nil, errors.Wrap(err, "obj parse failed")
	}

	mesh := &roft.Mesh{}
	for _, stmt := range ast.Stmts {
		switch {
		case stmt == nil:
		case stmt.Vertex != nil:
			v := stmt.Vertex
			mesh.Vertices = append(mesh.Vertices, r3.Vec{X: v.X, Y: v.Y, Z: v.Z})
		case stmt.Face != nil:
			refs := stmt.Face.Refs
			idx := make([]int32, len(refs))
			for i, ref := range refs {
				vi, err := resolveRef(ref.Vertex, len(mesh.Vertices))
				if err != nil {
					return nil, err
				}
				idx[i] = vi
			}
			for i := 1; i+1 < len(idx); i++ {
				mesh.Triangles = append(mesh.Triangles, [3]int32{idx[0], idx[i], idx[i+1]})
			}
		}
	}

	Nv := int32(len(mesh.Vertices))
	for ti, tri := range mesh.Triangles {
		for _, vi := range tri {
			if vi >= Nv {
				return nil, errors.Wrapf(roft.ErrBadVtxIndex, "face %d references vertex %d of %d", ti, vi+1, Nv)
			}
		}
	}
	return mesh, nil
}

// resolveRef converts a one-based (or negative, relative to the last vertex read) OBJ index to a zero-based one.
func resolveRef(ref int, numRead int) (int32, error) {
	switch {
	case ref > 0:
		return int32(ref - 1), nil
	case ref < 0 && numRead+ref >= 0:
		return int32(numRead + ref), nil
	}
	return 0, errors.Wrapf(roft.ErrBadVtxIndex, "vertex reference %d", ref)
}

// WriteOBJ writes the triangles of mesh as an OBJ document, taking vertex positions from positions
// (or from mesh.Vertices if positions is nil).
func WriteOBJ(w io.Writer, mesh *roft.Mesh, positions []r3.Vec) error {
	if positions == nil {
		positions = mesh.Vertices
	}
	if len(positions) != len(mesh.Vertices) {
		return errors.Wrapf(roft.ErrBadVtxIndex, "%d positions for %d vertices", len(positions), len(mesh.Vertices))
	}

	bw := bufio.NewWriter(w)
	for _, p := range positions {
		fmt.Fprintf(bw, "v %g %g %g\n", p.X, p.Y, p.Z)
	}
	for _, tri := range mesh.Triangles {
		fmt.Fprintf(bw, "f %d %d %d\n", tri[0]+1, tri[1]+1, tri[2]+1)
	}
	return bw.Flush()
}

// NewQuadGrid returns a flat cols x rows grid of vertices in the XY plane, centered on the origin,
// with each grid cell split into two triangles.  Vertex (c, r) has index r*cols + c.
func NewQuadGrid(cols, rows int, spacing float64) *roft.Mesh {
	mesh := &roft.Mesh{}
	if cols < 2 || rows < 2 {
		return mesh
	}

	mesh.Vertices = make([]r3.Vec, 0, cols*rows)
	x0 := -0.5 * spacing * float64(cols-1)
	y0 := -0.5 * spacing * float64(rows-1)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			mesh.Vertices = append(mesh.Vertices, r3.Vec{
				X: x0 + spacing*float64(c),
				Y: y0 + spacing*float64(r),
			})
		}
	}

	mesh.Triangles = make([][3]int32, 0, 2*(cols-1)*(rows-1))
	for r := 0; r+1 < rows; r++ {
		for c := 0; c+1 < cols; c++ {
			i := int32(r*cols + c)
			w := int32(cols)
			mesh.Triangles = append(mesh.Triangles,
				[3]int32{i, i + 1, i + w + 1},
				[3]int32{i, i + w + 1, i + w},
			)
		}
	}
	return mesh
}

// CornerIndices returns the four corner vertices of a grid with the given row length and vertex count.
func CornerIndices(numVerts, cols int) []int32 {
	if numVerts <= 0 || cols <= 0 {
		return nil
	}
	corners := []int32{
		0,
		int32(cols - 1),
		int32(numVerts - 1),
		int32(numVerts - cols),
	}
	return corners
}

// Fingerprint returns a hash of the vertex and triangle buffers of mesh.
func Fingerprint(mesh *roft.Mesh) uint64 {
	h := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(len(mesh.Vertices)))
	h.Write(buf[:])
	for _, v := range mesh.Vertices {
		for _, x := range [3]float64{v.X, v.Y, v.Z} {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
			h.Write(buf[:])
		}
	}
	for _, tri := range mesh.Triangles {
		for _, vi := range tri {
			binary.LittleEndian.PutUint32(buf[:4], uint32(vi))
			h.Write(buf[:4])
		}
	}
	return h.Sum64()
}
