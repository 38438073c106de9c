package libroft

import (
	"github.com/2x3systems/roft/libroft/mesh"
	"github.com/2x3systems/roft/roft"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// LoadOrBuildPlan returns the plan for m built with opts, taken from store if present there.
// Otherwise the plan is built and, if store is not nil, added to it.  cached reports which happened.
//
// A cached plan that does not fit m is rebuilt.  Failing to add a new plan to store is only logged.
func LoadOrBuildPlan(store roft.PlanStore, m *roft.Mesh, opts roft.BuildOpts) (plan *roft.BatchPlan, cached bool, err error) {
	key := roft.PlanKey{
		MeshID: mesh.Fingerprint(m),
		Opts:   opts,
	}

	if store != nil {
		plan, err = store.Get(key)
		if err == nil {
			if err = checkCachedPlan(plan, m); err == nil {
				return plan, true, nil
			}
			klog.Warningf("discarding cached plan for mesh %016x: %v", key.MeshID, err)
		} else if !errors.Is(err, roft.ErrPlanNotFound) {
			return nil, false, err
		}
	}

	plan, err = BuildPlan(m, opts)
	if err != nil {
		return nil, false, err
	}

	if store != nil {
		if err := store.Put(key, plan); err != nil {
			klog.Warningf("failed to cache plan for mesh %016x: %v", key.MeshID, err)
		}
	}
	return plan, false, nil
}

// checkCachedPlan returns an error if plan cannot drive m.
func checkCachedPlan(plan *roft.BatchPlan, m *roft.Mesh) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.NumPoints() != m.VertexCount() {
		return errors.Wrapf(roft.ErrBadPlan, "plan has %d points, mesh has %d", plan.NumPoints(), m.VertexCount())
	}
	return plan.CheckConflicts()
}
