package batch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dptru10/vasp-scaling-analysis/internal/config"
	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

type captureClient struct {
	specs []JobSpec
	err   error
}

func (c *captureClient) CreateJob(ctx context.Context, spec JobSpec) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.specs = append(c.specs, spec)
	return "projects/p/locations/l/jobs/" + spec.JobID, nil
}

func (c *captureClient) GetJob(ctx context.Context, name string) (State, error) {
	return StateRunning, nil
}

func (c *captureClient) CancelJob(ctx context.Context, name string) error { return nil }

func testConfig() config.Config {
	cfg := config.FromEnv()
	cfg.CPUsPerNode = 40
	cfg.GPUsPerNode = 4
	return cfg
}

func TestSubmitBuildsCPUSpec(t *testing.T) {
	client := &captureClient{}
	sub := NewSubmitter(client, testConfig())
	run := sweep.RunConfig{
		Name:   "run_line_CPU_2x2x6_2",
		Kind:   sweep.KindLine,
		Device: sweep.DeviceCPU,
		Nodes:  2,
	}

	h, err := sub.Submit(context.Background(), run)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if h.Run.Name != run.Name {
		t.Fatalf("handle not bound to run: %+v", h)
	}
	spec := client.specs[0]
	if spec.JobID != "run-line-cpu-2x2x6-2" {
		t.Fatalf("job id %q does not follow the service naming grammar", spec.JobID)
	}
	if spec.Shape.MachineType != "n2-standard-4" || spec.Shape.AcceleratorType != "" {
		t.Fatalf("unexpected CPU shape: %+v", spec.Shape)
	}
	if spec.MaxRetries != 3 {
		t.Fatalf("expected task retry count 3, got %d", spec.MaxRetries)
	}
	if spec.Env["VASP_NTASKS"] != "80" {
		t.Fatalf("expected VASP_NTASKS=80 for 2 CPU nodes, got %q", spec.Env["VASP_NTASKS"])
	}
	script := spec.Commands[len(spec.Commands)-1]
	if !strings.Contains(script, "run_line_CPU_2x2x6_2/elapsed_time.txt") {
		t.Fatalf("runner script does not upload under the run key:\n%s", script)
	}
	if !strings.Contains(script, "vasp_std") {
		t.Fatalf("expected the CPU solver binary in the runner script")
	}
}

func TestSubmitBuildsGPUSpec(t *testing.T) {
	client := &captureClient{}
	sub := NewSubmitter(client, testConfig())
	run := sweep.RunConfig{
		Name:       "run_bar_HSE06_MySystem",
		Kind:       sweep.KindBar,
		Device:     sweep.DeviceGPU,
		Nodes:      1,
		Functional: "HSE06",
	}

	if _, err := sub.Submit(context.Background(), run); err != nil {
		t.Fatalf("submit: %v", err)
	}
	spec := client.specs[0]
	if spec.Shape.MachineType != "a2-highgpu-1g" || spec.Shape.AcceleratorCount != 1 {
		t.Fatalf("unexpected GPU shape: %+v", spec.Shape)
	}
	if spec.Env["VASP_NTASKS"] != "4" {
		t.Fatalf("expected VASP_NTASKS=4 for 1 GPU node, got %q", spec.Env["VASP_NTASKS"])
	}
	if !strings.Contains(spec.Commands[len(spec.Commands)-1], "vasp_gpu") {
		t.Fatalf("expected the GPU solver binary in the runner script")
	}
}

func TestSubmitWrapsRejection(t *testing.T) {
	client := &captureClient{err: errors.New("quota exceeded")}
	sub := NewSubmitter(client, testConfig())

	_, err := sub.Submit(context.Background(), sweep.RunConfig{Name: "run_line_CPU_2x2x6_1", Device: sweep.DeviceCPU, Nodes: 1})
	var serr *SubmissionError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if serr.Run != "run_line_CPU_2x2x6_1" {
		t.Fatalf("submission error not bound to run: %+v", serr)
	}
}
