package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dptru10/vasp-scaling-analysis/internal/batch"
	"github.com/dptru10/vasp-scaling-analysis/internal/config"
	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

type fakeMaterializer struct {
	dirs []string
}

func (f *fakeMaterializer) Materialize(dir string, run sweep.RunConfig) error {
	f.dirs = append(f.dirs, dir)
	return nil
}

type scriptedClient struct {
	created   []string // run names in creation order
	failOn    string   // run name whose creation is rejected
	cancelled []string
}

func (c *scriptedClient) CreateJob(ctx context.Context, spec batch.JobSpec) (string, error) {
	if spec.RunName == c.failOn {
		return "", errors.New("quota exceeded")
	}
	c.created = append(c.created, spec.RunName)
	return "jobs/" + spec.JobID, nil
}

func (c *scriptedClient) GetJob(ctx context.Context, name string) (batch.State, error) {
	return batch.StateSucceeded, nil
}

func (c *scriptedClient) CancelJob(ctx context.Context, name string) error {
	c.cancelled = append(c.cancelled, name)
	return nil
}

type scriptedStore struct {
	objects map[string]string
}

func (s *scriptedStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *scriptedStore) DownloadText(ctx context.Context, key string) (string, error) {
	return s.objects[key], nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "POSCAR"), []byte("Si2\n"), 0o644); err != nil {
		t.Fatalf("write POSCAR: %v", err)
	}
	cfg := config.FromEnv()
	cfg.StructureFile = filepath.Join(dir, "POSCAR")
	cfg.OutputDir = dir
	cfg.PollInterval = time.Millisecond
	cfg.MaxWait = time.Minute
	return cfg
}

func TestRunHappyPath(t *testing.T) {
	cfg := testConfig(t)
	client := &scriptedClient{}
	store := &scriptedStore{objects: map[string]string{}}

	runs, err := sweep.BuildMatrix(cfg.Sweep)
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	for _, run := range runs {
		store.objects[run.ArtifactKey()] = "1.25"
	}

	mat := &fakeMaterializer{}
	if err := New(cfg, mat, client, store).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(client.created) != 8 {
		t.Fatalf("expected 8 submissions, got %d", len(client.created))
	}
	if len(mat.dirs) != 8 {
		t.Fatalf("expected 8 materialized directories, got %d", len(mat.dirs))
	}
	for _, f := range []string{"figure_a.png", "figure_b.png"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, f)); err != nil {
			t.Fatalf("expected %s: %v", f, err)
		}
	}
}

func TestRunAbortsAndRollsBackOnSubmissionFailure(t *testing.T) {
	cfg := testConfig(t)
	client := &scriptedClient{failOn: "run_line_CPU_2x2x6_2"} // the second run
	store := &scriptedStore{objects: map[string]string{}}

	err := New(cfg, &fakeMaterializer{}, client, store).Run(context.Background())
	var serr *batch.SubmissionError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}

	// Nothing after the failing run was submitted.
	if len(client.created) != 1 || client.created[0] != "run_line_CPU_2x2x6_1" {
		t.Fatalf("expected only the first run submitted, got %v", client.created)
	}
	// The one prior submission was rolled back best-effort.
	if len(client.cancelled) != 1 {
		t.Fatalf("expected 1 cancellation, got %v", client.cancelled)
	}
	// No figures on a fatal abort.
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "figure_a.png")); !os.IsNotExist(err) {
		t.Fatalf("no figure should be written after an abort")
	}
}

func TestRunFailsWithoutStructureFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.StructureFile = filepath.Join(cfg.OutputDir, "missing-POSCAR")

	err := New(cfg, &fakeMaterializer{}, &scriptedClient{}, &scriptedStore{objects: map[string]string{}}).Run(context.Background())
	if err == nil {
		t.Fatalf("expected precondition failure")
	}
}
