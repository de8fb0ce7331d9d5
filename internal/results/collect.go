package results

import (
	"context"
	"log"
	"strconv"
	"strings"

	"github.com/dptru10/vasp-scaling-analysis/internal/observability"
	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

// RunResult pairs a run with its timing value. Hours is nil when the
// artifact was missing or unreadable; a failed run never gets a sentinel
// number.
type RunResult struct {
	Run   sweep.RunConfig
	Hours *float64
}

// ScalePoint keeps the node count and its value together. The scaling chart
// consumes these pairs directly, so dropping an absent point can never
// shift the alignment of the rest of the series.
type ScalePoint struct {
	Nodes int
	Hours *float64
}

// ScaleSeries is one line of the scaling chart.
type ScaleSeries struct {
	Device sweep.Device
	KPoint string
	Points []ScalePoint
}

func (s ScaleSeries) Label() string {
	return string(s.Device) + " - " + s.KPoint
}

// BarValue is one bar of the functional-comparison chart.
type BarValue struct {
	Functional string
	Hours      *float64
}

// Collected is everything the report renderer consumes.
type Collected struct {
	Results []RunResult
	Series  []ScaleSeries
	Bars    []BarValue
}

// Collector fetches one timing artifact per run once the whole fleet is
// terminal.
type Collector struct {
	store BlobStore
}

func NewCollector(store BlobStore) *Collector {
	return &Collector{store: store}
}

// Collect returns a result for every run, present or not. Artifact
// problems are logged and degrade that one result to absent; they never
// abort the batch and are never retried.
func (c *Collector) Collect(ctx context.Context, runs []sweep.RunConfig) *Collected {
	out := &Collected{Results: make([]RunResult, 0, len(runs))}
	seriesIndex := make(map[string]int)

	for _, run := range runs {
		hours := c.fetch(ctx, run)
		out.Results = append(out.Results, RunResult{Run: run, Hours: hours})

		switch run.Kind {
		case sweep.KindLine:
			key := string(run.Device) + "|" + run.KPointName
			i, ok := seriesIndex[key]
			if !ok {
				i = len(out.Series)
				seriesIndex[key] = i
				out.Series = append(out.Series, ScaleSeries{Device: run.Device, KPoint: run.KPointName})
			}
			out.Series[i].Points = append(out.Series[i].Points, ScalePoint{Nodes: run.Nodes, Hours: hours})
		case sweep.KindBar:
			out.Bars = append(out.Bars, BarValue{Functional: run.Functional, Hours: hours})
		}
	}
	return out
}

func (c *Collector) fetch(ctx context.Context, run sweep.RunConfig) *float64 {
	key := run.ArtifactKey()
	ok, err := c.store.Exists(ctx, key)
	if err != nil {
		log.Printf("error checking artifact for %s: %v", run.Name, err)
		observability.Default.Inc("artifacts_missing")
		return nil
	}
	if !ok {
		log.Printf("warning: no elapsed_time.txt found for %s", run.Name)
		observability.Default.Inc("artifacts_missing")
		return nil
	}
	text, err := c.store.DownloadText(ctx, key)
	if err != nil {
		log.Printf("error reading artifact for %s: %v", run.Name, err)
		observability.Default.Inc("artifacts_missing")
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		log.Printf("error parsing artifact for %s: %v", run.Name, err)
		observability.Default.Inc("artifacts_missing")
		return nil
	}
	observability.Default.Inc("artifacts_collected")
	return &v
}
