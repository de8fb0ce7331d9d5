package batch

import (
	"context"
	"fmt"

	gcpbatch "cloud.google.com/go/batch/apiv1"
	"cloud.google.com/go/batch/apiv1/batchpb"
	"google.golang.org/api/option"
)

// GCPClient implements Client against Google Cloud Batch.
type GCPClient struct {
	client   *gcpbatch.Client
	project  string
	location string
}

func NewGCPClient(ctx context.Context, project, location string, opts ...option.ClientOption) (*GCPClient, error) {
	c, err := gcpbatch.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create batch client: %w", err)
	}
	return &GCPClient{client: c, project: project, location: location}, nil
}

func (g *GCPClient) Close() error { return g.client.Close() }

func (g *GCPClient) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", g.project, g.location)
}

func (g *GCPClient) CreateJob(ctx context.Context, spec JobSpec) (string, error) {
	job, err := g.client.CreateJob(ctx, &batchpb.CreateJobRequest{
		Parent: g.parent(),
		JobId:  spec.JobID,
		Job:    translateSpec(spec),
	})
	if err != nil {
		return "", err
	}
	return job.GetName(), nil
}

func (g *GCPClient) GetJob(ctx context.Context, name string) (State, error) {
	job, err := g.client.GetJob(ctx, &batchpb.GetJobRequest{Name: name})
	if err != nil {
		return StateUnknown, err
	}
	switch job.GetStatus().GetState() {
	case batchpb.JobStatus_QUEUED:
		return StateQueued, nil
	case batchpb.JobStatus_SCHEDULED:
		return StateScheduled, nil
	case batchpb.JobStatus_RUNNING:
		return StateRunning, nil
	case batchpb.JobStatus_SUCCEEDED:
		return StateSucceeded, nil
	case batchpb.JobStatus_FAILED:
		return StateFailed, nil
	default:
		return StateUnknown, nil
	}
}

// CancelJob deletes the remote job. Deletion is asynchronous on the
// service side; the returned operation is not waited on.
func (g *GCPClient) CancelJob(ctx context.Context, name string) error {
	_, err := g.client.DeleteJob(ctx, &batchpb.DeleteJobRequest{
		Name:   name,
		Reason: "batch submission aborted",
	})
	return err
}

func translateSpec(spec JobSpec) *batchpb.Job {
	taskSpec := &batchpb.TaskSpec{
		Runnables: []*batchpb.Runnable{{
			Executable: &batchpb.Runnable_Container_{
				Container: &batchpb.Runnable_Container{
					ImageUri: spec.Image,
					Commands: spec.Commands,
				},
			},
		}},
		MaxRetryCount: spec.MaxRetries,
		ComputeResource: &batchpb.ComputeResource{
			CpuMilli:  spec.Shape.CPUMilli,
			MemoryMib: spec.Shape.MemoryMiB,
		},
	}
	if len(spec.Env) > 0 {
		taskSpec.Environment = &batchpb.Environment{Variables: spec.Env}
	}

	instancePolicy := &batchpb.AllocationPolicy_InstancePolicy{
		MachineType: spec.Shape.MachineType,
	}
	if spec.Shape.AcceleratorType != "" {
		instancePolicy.Accelerators = []*batchpb.AllocationPolicy_Accelerator{{
			Type:  spec.Shape.AcceleratorType,
			Count: spec.Shape.AcceleratorCount,
		}}
	}

	return &batchpb.Job{
		TaskGroups: []*batchpb.TaskGroup{{
			TaskSpec:  taskSpec,
			TaskCount: 1,
		}},
		AllocationPolicy: &batchpb.AllocationPolicy{
			Instances: []*batchpb.AllocationPolicy_InstancePolicyOrTemplate{{
				PolicyTemplate: &batchpb.AllocationPolicy_InstancePolicyOrTemplate_Policy{
					Policy: instancePolicy,
				},
			}},
		},
	}
}
