package sweep

import (
	"fmt"
	"strings"

	"github.com/dptru10/vasp-scaling-analysis/internal/config"
)

type Device string

const (
	DeviceCPU Device = "CPU"
	DeviceGPU Device = "GPU"
)

type RunKind string

const (
	KindLine RunKind = "line"
	KindBar  RunKind = "bar"
)

// RunConfig identifies one point of the study. Name doubles as the input
// directory name and the object-storage key prefix, so it is the identity
// everything downstream is keyed on.
type RunConfig struct {
	Name       string
	Kind       RunKind
	Device     Device
	Nodes      int
	KPointName string
	Grid       [3]int
	NK         int
	Functional string
	Material   string
}

// BuildMatrix expands the sweep axes into the full ordered run list: the
// scaling runs first (k-point, then device, then node count, in axis order),
// then the functional-comparison runs. Later stages rely on this order, so
// the expansion must stay deterministic. A duplicate run name is an error
// rather than a silent overwrite.
func BuildMatrix(sw config.SweepConfig) ([]RunConfig, error) {
	var runs []RunConfig
	for _, kp := range sw.KPoints {
		for _, dev := range sw.Devices {
			device, err := parseDevice(dev)
			if err != nil {
				return nil, err
			}
			for _, nodes := range sw.Nodes {
				if nodes <= 0 {
					return nil, fmt.Errorf("node count %d is not positive", nodes)
				}
				runs = append(runs, RunConfig{
					Name:       fmt.Sprintf("run_line_%s_%s_%d", device, kp.Name, nodes),
					Kind:       KindLine,
					Device:     device,
					Nodes:      nodes,
					KPointName: kp.Name,
					Grid:       kp.Grid,
					NK:         kp.NK,
					Material:   sw.Material,
				})
			}
		}
	}
	for _, fn := range sw.Functionals {
		runs = append(runs, RunConfig{
			Name:       fmt.Sprintf("run_bar_%s_%s", fn, sw.Material),
			Kind:       KindBar,
			Device:     DeviceGPU,
			Nodes:      sw.BarNodes,
			Functional: fn,
			Material:   sw.Material,
		})
	}
	seen := make(map[string]bool, len(runs))
	for _, r := range runs {
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate run name %q in sweep matrix", r.Name)
		}
		seen[r.Name] = true
	}
	return runs, nil
}

// ArtifactKey is the object-storage key the remote job uploads its timing
// result under.
func (r RunConfig) ArtifactKey() string {
	return r.Name + "/elapsed_time.txt"
}

// JobID maps the run name onto the remote service's job-naming grammar
// (lowercase letters, digits and hyphens, starting with a letter).
func (r RunConfig) JobID() string {
	id := strings.ToLower(r.Name)
	id = strings.ReplaceAll(id, "_", "-")
	id = strings.ReplaceAll(id, ".", "-")
	if len(id) > 63 {
		id = id[:63]
	}
	return strings.Trim(id, "-")
}

func parseDevice(s string) (Device, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CPU":
		return DeviceCPU, nil
	case "GPU":
		return DeviceGPU, nil
	default:
		return "", fmt.Errorf("unknown device class %q", s)
	}
}
