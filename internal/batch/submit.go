package batch

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dptru10/vasp-scaling-analysis/internal/config"
	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

// maxSolverCorrections bounds the self-healing retry loop that wraps the
// solver inside the container. Independent of the task-level retry count.
const maxSolverCorrections = 10

// taskMaxRetries is the remote service's whole-task retry budget for
// transient infrastructure failures.
const taskMaxRetries = 3

// Submitter maps one run configuration plus its materialized input
// directory onto a submitted remote job.
type Submitter struct {
	client Client
	cfg    config.Config
}

func NewSubmitter(client Client, cfg config.Config) *Submitter {
	return &Submitter{client: client, cfg: cfg}
}

// Submit builds the job spec for a run and creates it on the remote
// service. A rejection comes back as *SubmissionError and must abort the
// batch; the handles submitted so far are the caller's rollback list.
func (s *Submitter) Submit(ctx context.Context, run sweep.RunConfig) (JobHandle, error) {
	spec := s.buildSpec(run)
	name, err := s.client.CreateJob(ctx, spec)
	if err != nil {
		return JobHandle{}, &SubmissionError{Run: run.Name, Err: err}
	}
	return JobHandle{Run: run, Name: name}, nil
}

func (s *Submitter) buildSpec(run sweep.RunConfig) JobSpec {
	solverCmd := s.cfg.CPUSolverCmd
	if run.Device == sweep.DeviceGPU {
		solverCmd = s.cfg.GPUSolverCmd
	}
	ntasks := sweep.TaskCount(run, s.cfg.CPUsPerNode, s.cfg.GPUsPerNode)
	return JobSpec{
		JobID:    run.JobID(),
		RunName:  run.Name,
		Image:    s.cfg.ContainerImage,
		Commands: []string{"python3", "-c", runnerScript(run.Name, solverCmd, s.cfg.Bucket)},
		Env: map[string]string{
			// Consumed by the solver launch inside the container (mpirun -np).
			"VASP_NTASKS": strconv.Itoa(ntasks),
		},
		Shape:      sweep.ShapeFor(run.Device),
		MaxRetries: taskMaxRetries,
	}
}

// runnerScript is the in-container driver: run the solver under its
// error-correcting wrapper, parse the elapsed hours out of OUTCAR, write
// the timing artifact and upload it under the run's key.
func runnerScript(runName, solverCmd, bucket string) string {
	return fmt.Sprintf(`
import os
from custodian.vasp.jobs import VaspJob
from custodian.vasp.handlers import VaspErrorHandler
from custodian.custodian import Custodian
from pymatgen.io.vasp.outputs import Outcar
from google.cloud import storage

os.chdir(%q)
job = VaspJob(%q.split(), final=True, suffix='')
c = Custodian([VaspErrorHandler()], [job], max_errors=%d)
c.run()

outcar = Outcar('OUTCAR')
elapsed_time = outcar.run_stats['Total CPU time used (sec)'] / 3600
with open('elapsed_time.txt', 'w') as f:
    f.write(str(elapsed_time))

storage.Client().bucket(%q).blob(%q).upload_from_filename('elapsed_time.txt')
`, runName, solverCmd, maxSolverCorrections, bucket, runName+"/elapsed_time.txt")
}
