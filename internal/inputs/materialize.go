package inputs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

// PreconditionError reports a missing required input file. It is fatal:
// nothing is submitted without a structure to run.
type PreconditionError struct {
	Path string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("required input file %s not found", e.Path)
}

// CheckStructure verifies the structure file exists before any run starts.
func CheckStructure(path string) error {
	if _, err := os.Stat(path); err != nil {
		return &PreconditionError{Path: path}
	}
	return nil
}

// Materializer produces one self-contained input directory for a run. The
// solver-input generation behind it is a collaborator concern; the driver
// only cares that the directory ends up complete.
type Materializer interface {
	Materialize(dir string, run sweep.RunConfig) error
}

// VaspWriter is the stock materializer: it copies the structure file in and
// generates KPOINTS and INCAR from the run's axis values.
type VaspWriter struct {
	StructureFile string
}

func NewVaspWriter(structureFile string) *VaspWriter {
	return &VaspWriter{StructureFile: structureFile}
}

func (w *VaspWriter) Materialize(dir string, run sweep.RunConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	structure, err := os.ReadFile(w.StructureFile)
	if err != nil {
		return fmt.Errorf("read structure: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "POSCAR"), structure, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "KPOINTS"), []byte(kpointsFile(run)), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "INCAR"), []byte(incarFile(run)), 0o644); err != nil {
		return err
	}
	return nil
}

func kpointsFile(run sweep.RunConfig) string {
	grid := run.Grid
	if grid == [3]int{} {
		// Functional-comparison runs carry no explicit grid; fall back to a
		// moderate gamma-centered mesh.
		grid = [3]int{4, 4, 4}
	}
	return fmt.Sprintf("Automatic mesh\n0\nGamma\n%d %d %d\n0 0 0\n", grid[0], grid[1], grid[2])
}

func incarFile(run sweep.RunConfig) string {
	var b strings.Builder
	b.WriteString("SYSTEM = " + run.Name + "\n")
	b.WriteString("NSW = 50\nIBRION = 2\nISIF = 3\n")
	if run.Functional == "HSE06" {
		b.WriteString("LHFCALC = .TRUE.\n")
		b.WriteString("HFSCREEN = 0.2\n")
		b.WriteString("AEXX = 0.25\n")
		b.WriteString("AGGAX = 0.75\n")
		b.WriteString("AGGAC = 0.75\n")
		b.WriteString("ALDAC = 0.75\n")
		b.WriteString("ALGO = All\n")
	}
	return b.String()
}
