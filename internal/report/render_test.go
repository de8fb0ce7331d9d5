package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dptru10/vasp-scaling-analysis/internal/results"
	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

func fptr(v float64) *float64 { return &v }

func TestScalingSkipsAbsentPoints(t *testing.T) {
	dir := t.TempDir()
	series := []results.ScaleSeries{
		{Device: sweep.DeviceCPU, KPoint: "2x2x6", Points: []results.ScalePoint{
			{Nodes: 1, Hours: fptr(2.0)},
			{Nodes: 2, Hours: fptr(1.2)},
		}},
		{Device: sweep.DeviceCPU, KPoint: "3x3x9", Points: []results.ScalePoint{
			{Nodes: 1, Hours: nil}, // failed run
			{Nodes: 2, Hours: fptr(2.4)},
		}},
	}
	if err := NewRenderer(dir).Scaling(series); err != nil {
		t.Fatalf("scaling: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ScalingFigure)); err != nil {
		t.Fatalf("expected %s to be written: %v", ScalingFigure, err)
	}
}

func TestScalingWithNoDataWritesNothing(t *testing.T) {
	dir := t.TempDir()
	series := []results.ScaleSeries{
		{Device: sweep.DeviceCPU, KPoint: "2x2x6", Points: []results.ScalePoint{
			{Nodes: 1, Hours: nil},
			{Nodes: 2, Hours: nil},
		}},
	}
	if err := NewRenderer(dir).Scaling(series); err != nil {
		t.Fatalf("scaling: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ScalingFigure)); !os.IsNotExist(err) {
		t.Fatalf("expected no figure for all-absent data")
	}
}

func TestFunctionalsSkipsAbsentBars(t *testing.T) {
	dir := t.TempDir()
	bars := []results.BarValue{
		{Functional: "PBE", Hours: fptr(0.8)},
		{Functional: "HSE06", Hours: nil},
	}
	if err := NewRenderer(dir).Functionals(bars); err != nil {
		t.Fatalf("functionals: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FunctionalFigure)); err != nil {
		t.Fatalf("expected %s to be written: %v", FunctionalFigure, err)
	}
}

func TestFunctionalsWithNoDataWritesNothing(t *testing.T) {
	dir := t.TempDir()
	bars := []results.BarValue{
		{Functional: "PBE", Hours: nil},
		{Functional: "HSE06", Hours: nil},
	}
	if err := NewRenderer(dir).Functionals(bars); err != nil {
		t.Fatalf("functionals: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FunctionalFigure)); !os.IsNotExist(err) {
		t.Fatalf("expected no figure for all-absent data")
	}
}

// One absent entry among five must not disturb the other four.
func TestRenderAllPartialData(t *testing.T) {
	dir := t.TempDir()
	c := &results.Collected{
		Series: []results.ScaleSeries{
			{Device: sweep.DeviceCPU, KPoint: "2x2x6", Points: []results.ScalePoint{
				{Nodes: 1, Hours: fptr(1.0)},
				{Nodes: 2, Hours: fptr(0.6)},
				{Nodes: 4, Hours: nil},
			}},
		},
		Bars: []results.BarValue{
			{Functional: "PBE", Hours: fptr(0.8)},
			{Functional: "HSE06", Hours: fptr(3.1)},
		},
	}
	if err := NewRenderer(dir).RenderAll(c); err != nil {
		t.Fatalf("render all: %v", err)
	}
	for _, f := range []string{ScalingFigure, FunctionalFigure} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Fatalf("expected %s: %v", f, err)
		}
	}
}
