package orchestrator

import (
	"context"
	"log"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dptru10/vasp-scaling-analysis/internal/batch"
	"github.com/dptru10/vasp-scaling-analysis/internal/config"
	"github.com/dptru10/vasp-scaling-analysis/internal/inputs"
	"github.com/dptru10/vasp-scaling-analysis/internal/observability"
	"github.com/dptru10/vasp-scaling-analysis/internal/report"
	"github.com/dptru10/vasp-scaling-analysis/internal/results"
	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

// Orchestrator owns the lifecycle of one study: materialize and submit
// every run, track the fleet to terminal state, collect artifacts, render.
// All collaborators are injected; it keeps no global state.
type Orchestrator struct {
	cfg      config.Config
	mat      inputs.Materializer
	client   batch.Client
	store    results.BlobStore
	renderer *report.Renderer
}

func New(cfg config.Config, mat inputs.Materializer, client batch.Client, store results.BlobStore) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		mat:      mat,
		client:   client,
		store:    store,
		renderer: report.NewRenderer(cfg.OutputDir),
	}
}

// Run executes the whole study. Ordering contract: every submission
// happens before the first poll, collection starts only once every job is
// terminal, rendering comes last. Setup and submission errors are fatal;
// collection and rendering degrade instead of aborting.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	if err := inputs.CheckStructure(o.cfg.StructureFile); err != nil {
		return err
	}

	runs, err := sweep.BuildMatrix(o.cfg.Sweep)
	if err != nil {
		return err
	}
	log.Printf("starting scaling analysis: project=%s location=%s bucket=%s runs=%d",
		o.cfg.ProjectID, o.cfg.Location, o.cfg.Bucket, len(runs))

	handles, err := o.submitAll(ctx, runs)
	if err != nil {
		o.cancelAll(ctx, handles)
		return err
	}
	log.Printf("submitted %d jobs, waiting for completion", len(handles))

	trackCtx, span := observability.StartSpan(ctx, "track", attribute.Int("jobs", len(handles)))
	tracker := batch.NewTracker(o.client, batch.TrackerOptions{
		PollInterval: o.cfg.PollInterval,
		MaxWait:      o.cfg.MaxWait,
	})
	outcomes, err := tracker.Wait(trackCtx, handles)
	span.End()
	if err != nil {
		return err
	}
	succeeded := 0
	for _, out := range outcomes {
		if out.State == batch.StateSucceeded {
			succeeded++
		}
	}
	log.Printf("all jobs terminal: %d succeeded, %d failed", succeeded, len(outcomes)-succeeded)

	collectCtx, span := observability.StartSpan(ctx, "collect")
	collected := results.NewCollector(o.store).Collect(collectCtx, runs)
	span.End()

	_, span = observability.StartSpan(ctx, "render")
	o.renderer.RenderAll(collected)
	span.End()

	observability.Default.LogSummary()
	return nil
}

// submitAll materializes inputs and submits runs in matrix order. On
// failure it returns the handles created so far so the caller can roll
// them back; nothing after the failing run is submitted.
func (o *Orchestrator) submitAll(ctx context.Context, runs []sweep.RunConfig) ([]batch.JobHandle, error) {
	ctx, span := observability.StartSpan(ctx, "submit", attribute.Int("runs", len(runs)))
	defer span.End()

	submitter := batch.NewSubmitter(o.client, o.cfg)
	handles := make([]batch.JobHandle, 0, len(runs))
	for _, run := range runs {
		dir := filepath.Join(o.cfg.OutputDir, run.Name)
		if err := o.mat.Materialize(dir, run); err != nil {
			return handles, err
		}
		h, err := submitter.Submit(ctx, run)
		if err != nil {
			return handles, err
		}
		log.Printf("submitted job: %s", h.Name)
		observability.Default.Inc("runs_submitted")
		handles = append(handles, h)
	}
	return handles, nil
}

// cancelAll is the best-effort rollback for an aborted submission phase:
// jobs already created would otherwise keep running as orphans.
func (o *Orchestrator) cancelAll(ctx context.Context, handles []batch.JobHandle) {
	for _, h := range handles {
		if err := o.client.CancelJob(ctx, h.Name); err != nil {
			log.Printf("warning: could not cancel job %s: %v", h.Run.Name, err)
			continue
		}
		log.Printf("cancelled job %s", h.Run.Name)
	}
}
