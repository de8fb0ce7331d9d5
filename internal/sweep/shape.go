package sweep

// ComputeShape is the machine shape a run is submitted with. Derived from
// the device class alone; node count only scales the task parallelism.
type ComputeShape struct {
	MachineType      string
	CPUMilli         int64
	MemoryMiB        int64
	AcceleratorType  string
	AcceleratorCount int64
}

// ShapeFor returns the fixed shape for a device class. The shapes are
// deliberately small to fit default regional quotas.
func ShapeFor(d Device) ComputeShape {
	if d == DeviceGPU {
		// a2-highgpu-1g: one A100, 12 vCPUs, 85 GB.
		return ComputeShape{
			MachineType:      "a2-highgpu-1g",
			CPUMilli:         12000,
			MemoryMiB:        87040,
			AcceleratorType:  "nvidia-tesla-a100",
			AcceleratorCount: 1,
		}
	}
	return ComputeShape{
		MachineType: "n2-standard-4",
		CPUMilli:    4000,
		MemoryMiB:   16384,
	}
}

// TaskCount is the MPI rank count for a run: nodes times the per-node core
// or GPU count for its device class.
func TaskCount(r RunConfig, cpusPerNode, gpusPerNode int) int {
	if r.Device == DeviceGPU {
		return r.Nodes * gpusPerNode
	}
	return r.Nodes * cpusPerNode
}
