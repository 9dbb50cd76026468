package rapi

import (
	"fmt"
	"time"
)

// AuthError means RAPI rejected the supplied credentials. Never retried.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("rapi: authentication failed (status %d)", e.Status)
}

// NetworkError wraps a transport failure that survived the retry budget.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("rapi: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response outside the expected codes. The body
// is carried for diagnostics. Never retried: RAPI status errors are not
// transient.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("rapi: %s %s returned status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// NotFoundError means the queried instance does not exist on the cluster.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("rapi: instance %q not found", e.Name)
}

// TimeoutError means job polling exceeded its ceiling. The cluster-side
// job is not canceled and may still complete: the outcome is
// indeterminate, not a failure of the job itself.
type TimeoutError struct {
	JobID   JobID
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rapi: timed out after %s waiting for job %d (job may still be running)", e.Elapsed, e.JobID)
}

// JobError means the cluster reported a terminal error or canceled
// status for a job. Message carries the cluster-supplied error text.
type JobError struct {
	JobID   JobID
	Status  JobStatus
	Message string
}

func (e *JobError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("rapi: job %d failed: %s", e.JobID, e.Message)
	}
	return fmt.Sprintf("rapi: job %d finished with status %q", e.JobID, e.Status)
}
