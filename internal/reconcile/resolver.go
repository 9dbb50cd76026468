// Package reconcile drives Ganeti instances toward a declared desired
// state: existence/drift resolution, a per-instance state machine, and
// a batch entry point with per-item error isolation.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"gntrecon/internal/rapi"
	"gntrecon/internal/spec"
)

// ClusterAPI is the slice of the RAPI client the reconciler needs.
// *rapi.Client satisfies it.
type ClusterAPI interface {
	GetInstance(ctx context.Context, name string) (*rapi.Instance, error)
	CreateInstance(ctx context.Context, payload any) (rapi.JobID, error)
	DeleteInstance(ctx context.Context, name string) (rapi.JobID, error)
	StartupInstance(ctx context.Context, name string) (rapi.JobID, error)
	ShutdownInstance(ctx context.Context, name string) (rapi.JobID, error)
	RebootInstance(ctx context.Context, name string) (rapi.JobID, error)
}

// JobWaiter blocks until a submitted job reaches a terminal state.
// *rapi.Poller satisfies it.
type JobWaiter interface {
	AwaitJob(ctx context.Context, h rapi.JobHandle) (*rapi.Job, error)
}

// Resolver answers whether an instance exists and how its current
// configuration compares to a desired spec. This is the idempotency
// layer: the existence check is a best-effort guard, not a linearizable
// one, so callers must serialize operations per instance name.
type Resolver struct {
	api ClusterAPI
}

// NewResolver builds a resolver on top of a cluster API.
func NewResolver(api ClusterAPI) *Resolver {
	return &Resolver{api: api}
}

// Get fetches the instance's current state. Returns
// rapi.NotFoundError when the instance does not exist.
func (r *Resolver) Get(ctx context.Context, name string) (*rapi.Instance, error) {
	return r.api.GetInstance(ctx, name)
}

// Lookup fetches the instance, mapping absence to a nil instance
// instead of an error.
func (r *Resolver) Lookup(ctx context.Context, name string) (*rapi.Instance, error) {
	inst, err := r.api.GetInstance(ctx, name)
	if err != nil {
		var notFound *rapi.NotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	return inst, nil
}

// Exists reports whether the named instance is present on the cluster.
func (r *Resolver) Exists(ctx context.Context, name string) (bool, error) {
	inst, err := r.Lookup(ctx, name)
	if err != nil {
		return false, err
	}
	return inst != nil, nil
}

// Drift compares the key fields of an existing instance against the
// desired spec and returns the names of the fields that differ. The
// modify path is not implemented, so drift is reported, not corrected.
func Drift(existing *rapi.Instance, desired *spec.InstanceSpec) []string {
	var fields []string

	if existing.BEParams.Memory != desired.MemoryMB {
		fields = append(fields, "memory_mb")
	}
	if existing.BEParams.VCPUs != desired.VCPUs {
		fields = append(fields, "vcpus")
	}

	if len(existing.DiskSizes) != len(desired.Disks) {
		fields = append(fields, "disks")
		return fields
	}
	for i, d := range desired.Disks {
		bytes, err := spec.ParseSize(d.Size)
		if err != nil {
			continue
		}
		if existing.DiskSizes[i] != spec.BytesToMB(bytes) {
			fields = append(fields, fmt.Sprintf("disks[%d].size", i))
		}
	}

	return fields
}
