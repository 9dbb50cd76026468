package rapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gntrecon/internal/logging"

	"go.uber.org/zap"
)

// JobID identifies an asynchronous cluster job.
type JobID int64

// JobStatus is the lifecycle state of a cluster job.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusWaiting  JobStatus = "waiting"
	JobStatusRunning  JobStatus = "running"
	JobStatusSuccess  JobStatus = "success"
	JobStatusError    JobStatus = "error"
	JobStatusCanceled JobStatus = "canceled"
)

// Terminal reports whether the status ends the poll loop.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusError || s == JobStatusCanceled
}

// Job is the subset of GET /2/jobs/{id} the poller inspects.
type Job struct {
	ID       JobID             `json:"id"`
	Status   JobStatus         `json:"status"`
	OpResult []json.RawMessage `json:"opresult"`
}

// JobHandle pairs a submitted job with its submission time. Owned by
// the poller for the duration of one poll loop.
type JobHandle struct {
	ID          JobID
	SubmittedAt time.Time
}

// NewJobHandle wraps a freshly submitted job id.
func NewJobHandle(id JobID) JobHandle {
	return JobHandle{ID: id, SubmittedAt: time.Now()}
}

// Poller waits for cluster jobs to reach a terminal state.
type Poller struct {
	client *Client

	// Interval between status queries.
	Interval time.Duration
	// Ceiling bounds the total wait. Exceeding it does not cancel the
	// cluster-side job.
	Ceiling time.Duration
}

// NewPoller builds a poller with the given interval and ceiling; zero
// values pick the defaults of 2s and 300s.
func NewPoller(client *Client, interval, ceiling time.Duration) *Poller {
	if interval == 0 {
		interval = 2 * time.Second
	}
	if ceiling == 0 {
		ceiling = 300 * time.Second
	}
	return &Poller{client: client, Interval: interval, Ceiling: ceiling}
}

// GetJob fetches the current state of a job.
func (p *Poller) GetJob(ctx context.Context, id JobID) (*Job, error) {
	raw, err := p.client.Do(ctx, http.MethodGet, fmt.Sprintf("/jobs/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %d: %w", id, err)
	}
	return &job, nil
}

// AwaitJob polls until the job is terminal. A successful job is
// returned as-is; error and canceled statuses surface as JobError with
// the cluster-supplied message. Hitting the ceiling surfaces
// TimeoutError without canceling the underlying job.
func (p *Poller) AwaitJob(ctx context.Context, h JobHandle) (*Job, error) {
	deadline := h.SubmittedAt.Add(p.Ceiling)

	for {
		job, err := p.GetJob(ctx, h.ID)
		if err != nil {
			return nil, err
		}

		if job.Status.Terminal() {
			if job.Status != JobStatusSuccess {
				return nil, &JobError{
					JobID:   h.ID,
					Status:  job.Status,
					Message: opresultMessage(job),
				}
			}
			logging.Logger().Debug("job finished",
				zap.Int64("job_id", int64(h.ID)),
				zap.Duration("elapsed", time.Since(h.SubmittedAt)))
			return job, nil
		}

		if time.Now().After(deadline) {
			return nil, &TimeoutError{JobID: h.ID, Elapsed: time.Since(h.SubmittedAt)}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.Interval):
		}
	}
}

// opresultMessage extracts the first error message from a failed job's
// opresult. Entries for failed opcodes look like ["ErrorType",
// ["message", ...]] or ["ErrorType", "message"]; the second element is
// the interesting one.
func opresultMessage(job *Job) string {
	if len(job.OpResult) == 0 {
		return ""
	}

	var entry []json.RawMessage
	if err := json.Unmarshal(job.OpResult[0], &entry); err != nil || len(entry) < 2 {
		return string(job.OpResult[0])
	}

	var msg string
	if err := json.Unmarshal(entry[1], &msg); err == nil {
		return msg
	}

	var args []string
	if err := json.Unmarshal(entry[1], &args); err == nil && len(args) > 0 {
		return args[0]
	}
	return string(entry[1])
}
