package reconcile

import (
	"context"
	"fmt"
	"strings"

	"gntrecon/internal/logging"
	"gntrecon/internal/rapi"
	"gntrecon/internal/spec"

	"go.uber.org/zap"
)

// DesiredState is what the caller wants to be true for an instance.
type DesiredState string

const (
	StatePresent   DesiredState = "present"
	StateAbsent    DesiredState = "absent"
	StateStarted   DesiredState = "started"
	StateStopped   DesiredState = "stopped"
	StateRestarted DesiredState = "restarted"
)

// Valid reports whether s is a supported desired state.
func (s DesiredState) Valid() bool {
	switch s {
	case StatePresent, StateAbsent, StateStarted, StateStopped, StateRestarted:
		return true
	}
	return false
}

// FinalState classifies the outcome of one reconciliation.
type FinalState string

const (
	Created   FinalState = "created"
	Destroyed FinalState = "destroyed"
	Started   FinalState = "started"
	Stopped   FinalState = "stopped"
	Restarted FinalState = "restarted"
	Unchanged FinalState = "unchanged"
	// Submitted means the job was handed to the cluster without
	// waiting; the outcome is unknown to the caller.
	Submitted FinalState = "submitted"
	Failed    FinalState = "failed"
)

// Result is the per-instance outcome returned to the caller. Changed is
// true only when the reconciler confirmed a state change, or submitted
// one without waiting.
type Result struct {
	Name    string
	Changed bool
	State   FinalState
	JobID   rapi.JobID
	Message string
	Err     error
}

// Reconciler drives one instance per call toward its desired state. It
// holds no mutable state across calls and is safe to use concurrently
// for distinct instance names. Concurrent calls for the same name race
// on the existence check and must be serialized by the caller.
type Reconciler struct {
	resolver *Resolver
	api      ClusterAPI
	jobs     JobWaiter

	// Wait controls whether mutations block on job completion. With
	// Wait off, results carry the job id and the Submitted state.
	Wait bool
}

// New builds a reconciler that waits for job completion.
func New(api ClusterAPI, jobs JobWaiter) *Reconciler {
	return &Reconciler{
		resolver: NewResolver(api),
		api:      api,
		jobs:     jobs,
		Wait:     true,
	}
}

func failed(name string, err error) Result {
	return Result{Name: name, State: Failed, Err: err}
}

// Reconcile runs the state machine for one instance: resolve current
// state, submit the mutation the desired state requires (if any), await
// the job, classify the outcome. Failed jobs are surfaced, never
// resubmitted: blind retry of a destructive operation is unsafe.
func (r *Reconciler) Reconcile(ctx context.Context, sp *spec.InstanceSpec, desired DesiredState) Result {
	log := logging.Logger().With(
		zap.String("instance", sp.Name),
		zap.String("desired_state", string(desired)))

	if !desired.Valid() {
		return failed(sp.Name, fmt.Errorf("unknown desired state %q", desired))
	}
	if sp.Name == "" {
		return failed(sp.Name, &spec.ValidationError{Field: "name", Reason: "must not be empty"})
	}

	switch desired {
	case StatePresent:
		return r.ensurePresent(ctx, log, sp)
	case StateAbsent:
		return r.ensureAbsent(ctx, log, sp.Name)
	default:
		return r.ensurePower(ctx, log, sp.Name, desired)
	}
}

func (r *Reconciler) ensurePresent(ctx context.Context, log *zap.Logger, sp *spec.InstanceSpec) Result {
	// Translate before touching the cluster so an invalid spec never
	// causes a transport call.
	payload, err := spec.Translate(sp)
	if err != nil {
		return failed(sp.Name, err)
	}

	existing, err := r.resolver.Lookup(ctx, sp.Name)
	if err != nil {
		return failed(sp.Name, err)
	}

	if existing != nil {
		if drift := Drift(existing, sp); len(drift) > 0 {
			log.Warn("instance differs from desired spec, modify is not supported",
				zap.Strings("fields", drift))
			return Result{
				Name:    sp.Name,
				State:   Unchanged,
				Message: "instance exists but differs in " + strings.Join(drift, ", "),
			}
		}
		return Result{Name: sp.Name, State: Unchanged, Message: "instance present"}
	}

	log.Info("creating instance",
		zap.String("pnode", sp.PNode),
		zap.Int("memory_mb", sp.MemoryMB),
		zap.Int("vcpus", sp.VCPUs))

	jobID, err := r.api.CreateInstance(ctx, payload)
	if err != nil {
		return failed(sp.Name, err)
	}
	return r.finish(ctx, log, sp.Name, jobID, Created)
}

func (r *Reconciler) ensureAbsent(ctx context.Context, log *zap.Logger, name string) Result {
	exists, err := r.resolver.Exists(ctx, name)
	if err != nil {
		return failed(name, err)
	}
	if !exists {
		return Result{Name: name, State: Unchanged, Message: "no instance found"}
	}

	log.Info("destroying instance")

	jobID, err := r.api.DeleteInstance(ctx, name)
	if err != nil {
		return failed(name, err)
	}
	return r.finish(ctx, log, name, jobID, Destroyed)
}

// ensurePower handles started/stopped/restarted. Unlike present/absent,
// a missing instance is an error here: there is nothing to power-cycle.
func (r *Reconciler) ensurePower(ctx context.Context, log *zap.Logger, name string, desired DesiredState) Result {
	inst, err := r.resolver.Lookup(ctx, name)
	if err != nil {
		return failed(name, err)
	}
	if inst == nil {
		return failed(name, fmt.Errorf("instance %q is not present, cannot set to %s", name, desired))
	}

	var (
		jobID   rapi.JobID
		outcome FinalState
	)

	switch desired {
	case StateStarted:
		if inst.Status == rapi.StatusRunning {
			return Result{Name: name, State: Unchanged, Message: "instance already running"}
		}
		jobID, err = r.api.StartupInstance(ctx, name)
		outcome = Started

	case StateStopped:
		if inst.IsDown() {
			return Result{Name: name, State: Unchanged,
				Message: fmt.Sprintf("instance already stopped, status %s", inst.Status)}
		}
		jobID, err = r.api.ShutdownInstance(ctx, name)
		outcome = Stopped

	case StateRestarted:
		if inst.Status == rapi.StatusRunning {
			jobID, err = r.api.RebootInstance(ctx, name)
			outcome = Restarted
		} else {
			jobID, err = r.api.StartupInstance(ctx, name)
			outcome = Started
		}
	}

	if err != nil {
		return failed(name, err)
	}

	log.Info("submitted power operation", zap.Int64("job_id", int64(jobID)))
	return r.finish(ctx, log, name, jobID, outcome)
}

// finish awaits the submitted job (unless Wait is off) and classifies
// the result.
func (r *Reconciler) finish(ctx context.Context, log *zap.Logger, name string, jobID rapi.JobID, outcome FinalState) Result {
	if !r.Wait {
		return Result{
			Name:    name,
			Changed: true,
			State:   Submitted,
			JobID:   jobID,
			Message: fmt.Sprintf("job %d submitted, not waiting for completion", jobID),
		}
	}

	if _, err := r.jobs.AwaitJob(ctx, rapi.NewJobHandle(jobID)); err != nil {
		res := failed(name, err)
		res.JobID = jobID
		return res
	}

	log.Info("reconciliation complete",
		zap.String("final_state", string(outcome)),
		zap.Int64("job_id", int64(jobID)))

	return Result{Name: name, Changed: true, State: outcome, JobID: jobID}
}
