package batch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dptru10/vasp-scaling-analysis/internal/observability"
	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

// Outcome is the terminal record for one run. Exactly one is produced per
// submitted handle.
type Outcome struct {
	Run   sweep.RunConfig
	State State
	// Err is set when the run was condemned by repeated poll failures
	// rather than a service-reported terminal state.
	Err error
}

// TrackingTimeoutError reports that the wait budget ran out with jobs still
// active. The remaining handles keep running on the remote service.
type TrackingTimeoutError struct {
	Waited    time.Duration
	Remaining []JobHandle
}

func (e *TrackingTimeoutError) Error() string {
	return fmt.Sprintf("tracking timed out after %s with %d jobs still active", e.Waited, len(e.Remaining))
}

type TrackerOptions struct {
	PollInterval time.Duration
	MaxWait      time.Duration
	// MaxPollErrors is how many consecutive GetJob failures a single run
	// absorbs before being classified failed. A lone transient error is
	// treated as not-yet-terminal.
	MaxPollErrors int
}

// Tracker owns the active set of submitted jobs and drains it to empty.
type Tracker struct {
	client Client
	opts   TrackerOptions

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewTracker(client Client, opts TrackerOptions) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 60 * time.Second
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 24 * time.Hour
	}
	if opts.MaxPollErrors <= 0 {
		opts.MaxPollErrors = 5
	}
	return &Tracker{
		client: client,
		opts:   opts,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// Wait polls every active job once per pass and removes those observed
// terminal, repeating until the set is empty. Each pass iterates over an
// immutable snapshot and builds the next active set explicitly, so removal
// can never skip or double-poll an entry. Returns one Outcome per handle;
// on timeout or cancellation the outcomes recorded so far come back along
// with the error.
func (t *Tracker) Wait(ctx context.Context, handles []JobHandle) ([]Outcome, error) {
	active := make([]JobHandle, len(handles))
	copy(active, handles)
	outcomes := make([]Outcome, 0, len(handles))
	pollErrs := make(map[string]int, len(handles))
	start := t.now()

	for len(active) > 0 {
		next := make([]JobHandle, 0, len(active))
		for _, h := range active {
			state, err := t.client.GetJob(ctx, h.Name)
			if err != nil {
				pollErrs[h.Name]++
				if pollErrs[h.Name] >= t.opts.MaxPollErrors {
					log.Printf("job %s: giving up after %d poll errors: %v", h.Run.Name, pollErrs[h.Name], err)
					observability.Default.Inc("jobs_failed")
					outcomes = append(outcomes, Outcome{Run: h.Run, State: StateFailed, Err: err})
					continue
				}
				log.Printf("job %s: poll error (%d/%d), still tracking: %v", h.Run.Name, pollErrs[h.Name], t.opts.MaxPollErrors, err)
				next = append(next, h)
				continue
			}
			pollErrs[h.Name] = 0
			switch state {
			case StateSucceeded:
				log.Printf("job %s completed", h.Run.Name)
				observability.Default.Inc("jobs_succeeded")
				outcomes = append(outcomes, Outcome{Run: h.Run, State: StateSucceeded})
			case StateFailed:
				log.Printf("job %s failed", h.Run.Name)
				observability.Default.Inc("jobs_failed")
				outcomes = append(outcomes, Outcome{Run: h.Run, State: StateFailed})
			default:
				next = append(next, h)
			}
		}
		active = next
		observability.Default.Inc("poll_passes")

		if len(active) == 0 {
			break
		}
		waited := t.now().Sub(start)
		if waited >= t.opts.MaxWait {
			return outcomes, &TrackingTimeoutError{Waited: waited, Remaining: active}
		}
		log.Printf("still waiting for %d jobs", len(active))
		if err := t.sleep(ctx, t.opts.PollInterval); err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
