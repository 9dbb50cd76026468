package reconcile

import (
	"context"
	"fmt"

	"gntrecon/internal/logging"
	"gntrecon/internal/spec"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Plan is a batch of desired-state operations: instances that must
// exist and instance names that must not.
type Plan struct {
	Ensure []spec.InstanceSpec
	Remove []string
}

// items flattens the plan into ordered work items.
func (p Plan) items() []planItem {
	items := make([]planItem, 0, len(p.Ensure)+len(p.Remove))
	for i := range p.Ensure {
		items = append(items, planItem{spec: &p.Ensure[i], desired: StatePresent})
	}
	for _, name := range p.Remove {
		items = append(items, planItem{spec: &spec.InstanceSpec{Name: name}, desired: StateAbsent})
	}
	return items
}

type planItem struct {
	spec    *spec.InstanceSpec
	desired DesiredState
}

// Validate rejects plans that mention the same instance name more than
// once. Racing a create against a destroy for one name is unsafe, and
// the reconciler does not serialize per name on its own.
func (p Plan) Validate() error {
	seen := make(map[string]bool, len(p.Ensure)+len(p.Remove))
	for _, item := range p.items() {
		if item.spec.Name == "" {
			continue // caught per-item by the reconciler
		}
		if seen[item.spec.Name] {
			return &spec.ValidationError{
				Field:  "name",
				Reason: fmt.Sprintf("instance %q appears more than once in the plan", item.spec.Name),
			}
		}
		seen[item.spec.Name] = true
	}
	return nil
}

// ReconcileAll reconciles every item of the plan, at most maxWorkers at
// a time, and returns one result per item in plan order (creates first,
// then removals). A single item's failure never aborts the rest of the
// batch.
func (r *Reconciler) ReconcileAll(ctx context.Context, plan Plan, maxWorkers int) ([]Result, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	items := plan.items()
	if len(items) == 0 {
		return nil, nil
	}

	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	workers := min(maxWorkers, len(items))

	batchID := uuid.NewString()
	log := logging.Logger().With(zap.String("batch_id", batchID))
	log.Info("starting batch reconciliation",
		zap.Int("ensure", len(plan.Ensure)),
		zap.Int("remove", len(plan.Remove)),
		zap.Int("workers", workers))

	results := make([]Result, len(items))
	pool := pond.NewPool(workers)

	for i, item := range items {
		i, item := i, item
		pool.Submit(func() {
			results[i] = r.Reconcile(ctx, item.spec, item.desired)
			if results[i].Err != nil {
				log.Error("reconciliation failed",
					zap.String("instance", item.spec.Name),
					zap.Error(results[i].Err))
			}
		})
	}

	pool.StopAndWait()

	changed, failures := 0, 0
	for _, res := range results {
		if res.Changed {
			changed++
		}
		if res.State == Failed {
			failures++
		}
	}
	log.Info("batch reconciliation finished",
		zap.Int("changed", changed),
		zap.Int("failed", failures))

	return results, nil
}
