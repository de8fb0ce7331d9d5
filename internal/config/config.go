package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries everything the driver needs for one study. It is built by
// the caller and handed to each component; nothing in this module keeps
// package-level state.
type Config struct {
	ProjectID      string
	Location       string
	Bucket         string
	ContainerImage string

	CPUSolverCmd string
	GPUSolverCmd string
	CPUsPerNode  int
	GPUsPerNode  int

	StructureFile string
	OutputDir     string

	PollInterval time.Duration
	MaxWait      time.Duration

	BlobEndpoint  string
	BlobAccessKey string
	BlobSecretKey string
	BlobUseSSL    bool

	Sweep SweepConfig
}

// KPointAxis is one sampling-density point of the scaling study.
type KPointAxis struct {
	Name string `yaml:"name"`
	Grid [3]int `yaml:"grid"`
	NK   int    `yaml:"nk"`
}

// SweepConfig holds the study axes. Slice order is the submission and
// plotting order, so it is part of the contract, which is why these are
// slices and not maps.
type SweepConfig struct {
	KPoints     []KPointAxis `yaml:"kpoints"`
	Nodes       []int        `yaml:"nodes"`
	Devices     []string     `yaml:"devices"`
	Functionals []string     `yaml:"functionals"`
	BarNodes    int          `yaml:"bar_nodes"`
	Material    string       `yaml:"material"`
}

func FromEnv() Config {
	return Config{
		ProjectID:      getenv("VSA_PROJECT_ID", "vasp-scaling-analysis"),
		Location:       getenv("VSA_LOCATION", "us-east1"),
		Bucket:         getenv("VSA_BUCKET", "vasp-scaling-outputs"),
		ContainerImage: getenv("VSA_CONTAINER_IMAGE", "us-central1-docker.pkg.dev/vasp-scaling-analysis/vasp-repo/vasp-pymatgen:latest"),
		CPUSolverCmd:   getenv("VSA_CPU_SOLVER_CMD", "/usr/local/vasp/bin/vasp_std"),
		GPUSolverCmd:   getenv("VSA_GPU_SOLVER_CMD", "/usr/local/vasp/bin/vasp_gpu"),
		CPUsPerNode:    getenvInt("VSA_CPUS_PER_NODE", 40),
		GPUsPerNode:    getenvInt("VSA_GPUS_PER_NODE", 4),
		StructureFile:  getenv("VSA_STRUCTURE_FILE", "POSCAR"),
		OutputDir:      getenv("VSA_OUTPUT_DIR", "."),
		PollInterval:   time.Duration(getenvInt("VSA_POLL_SECONDS", 60)) * time.Second,
		MaxWait:        time.Duration(getenvInt("VSA_MAX_WAIT_MINUTES", 24*60)) * time.Minute,
		BlobEndpoint:   getenv("VSA_BLOB_ENDPOINT", "storage.googleapis.com"),
		BlobAccessKey:  os.Getenv("VSA_BLOB_ACCESS_KEY"),
		BlobSecretKey:  os.Getenv("VSA_BLOB_SECRET_KEY"),
		BlobUseSSL:     getenvBool("VSA_BLOB_USE_SSL", true),
		Sweep:          DefaultSweep(),
	}
}

// DefaultSweep mirrors the study the tool was written for: three k-point
// densities over one and two nodes on CPU, plus a PBE/HSE06 comparison.
func DefaultSweep() SweepConfig {
	return SweepConfig{
		KPoints: []KPointAxis{
			{Name: "2x2x6", Grid: [3]int{2, 2, 6}, NK: 16},
			{Name: "3x3x9", Grid: [3]int{3, 3, 9}, NK: 72},
			{Name: "4x4x12", Grid: [3]int{4, 4, 12}, NK: 100},
		},
		Nodes:       []int{1, 2},
		Devices:     []string{"CPU"},
		Functionals: []string{"PBE", "HSE06"},
		BarNodes:    1,
		Material:    "MySystem",
	}
}

// LoadSweepFile replaces the sweep axes with the contents of a YAML file.
func (c *Config) LoadSweepFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sweep file: %w", err)
	}
	var sw SweepConfig
	if err := yaml.Unmarshal(b, &sw); err != nil {
		return fmt.Errorf("parse sweep file: %w", err)
	}
	if sw.BarNodes == 0 {
		sw.BarNodes = 1
	}
	if strings.TrimSpace(sw.Material) == "" {
		sw.Material = "MySystem"
	}
	c.Sweep = sw
	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectID) == "" {
		return fmt.Errorf("project id is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("bucket is required")
	}
	if len(c.Sweep.KPoints) == 0 {
		return fmt.Errorf("sweep has no k-point axes")
	}
	if len(c.Sweep.Nodes) == 0 {
		return fmt.Errorf("sweep has no node counts")
	}
	for _, n := range c.Sweep.Nodes {
		if n <= 0 {
			return fmt.Errorf("node count %d is not positive", n)
		}
	}
	if c.Sweep.BarNodes <= 0 {
		return fmt.Errorf("bar_nodes %d is not positive", c.Sweep.BarNodes)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
