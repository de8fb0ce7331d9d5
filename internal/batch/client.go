package batch

import (
	"context"
	"fmt"

	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

// State is the remote job state as observed by a poll. The tracker only
// distinguishes terminal success, terminal failure, and everything else.
type State int

const (
	StateUnknown State = iota
	StateQueued
	StateScheduled
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "QUEUED"
	case StateScheduled:
		return "SCHEDULED"
	case StateRunning:
		return "RUNNING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// JobSpec is the service-neutral description of one remote job. The Client
// implementation translates it into the wire form of its service.
type JobSpec struct {
	JobID      string
	RunName    string
	Image      string
	Commands   []string
	Env        map[string]string
	Shape      sweep.ComputeShape
	MaxRetries int32
}

// Client is the remote batch service boundary.
type Client interface {
	// CreateJob submits a job and returns the service's resource name.
	CreateJob(ctx context.Context, spec JobSpec) (string, error)
	// GetJob reports the current state of a submitted job.
	GetJob(ctx context.Context, name string) (State, error)
	// CancelJob makes a best-effort attempt to stop a submitted job.
	CancelJob(ctx context.Context, name string) error
}

// JobHandle ties a submitted job's remote resource name to the run it was
// submitted for. Immutable once created.
type JobHandle struct {
	Run  sweep.RunConfig
	Name string
}

// SubmissionError wraps a service-side rejection of a job spec. It aborts
// the whole batch: a partially submitted matrix is worse than none.
type SubmissionError struct {
	Run string
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s: %v", e.Run, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
