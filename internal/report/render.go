package report

import (
	"fmt"
	"image/color"
	"log"
	"path/filepath"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/dptru10/vasp-scaling-analysis/internal/results"
	"github.com/dptru10/vasp-scaling-analysis/internal/sweep"
)

const (
	ScalingFigure    = "figure_a.png"
	FunctionalFigure = "figure_b.png"
)

// RenderError reports a failure of one figure. The other figure is still
// attempted.
type RenderError struct {
	Figure string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Figure, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer draws the two study figures into OutDir, overwriting any
// previous output.
type Renderer struct {
	OutDir string
}

func NewRenderer(outDir string) *Renderer {
	return &Renderer{OutDir: outDir}
}

// RenderAll draws both figures. A failure in one is logged and does not
// stop the other; the first error is returned for the caller's log line.
func (r *Renderer) RenderAll(c *results.Collected) error {
	var first error
	if err := r.Scaling(c.Series); err != nil {
		log.Printf("warning: %v", err)
		first = err
	}
	if err := r.Functionals(c.Bars); err != nil {
		log.Printf("warning: %v", err)
		if first == nil {
			first = err
		}
	}
	return first
}

// Scaling draws the log-log node-scaling chart, one line per
// device/k-point series. Absent points are skipped; if no series has any
// value at all, nothing is drawn.
func (r *Renderer) Scaling(series []results.ScaleSeries) error {
	var drawable int
	nodeSet := make(map[int]bool)
	for _, s := range series {
		for _, pt := range s.Points {
			nodeSet[pt.Nodes] = true
			if pt.Hours != nil {
				drawable++
			}
		}
	}
	if drawable == 0 {
		log.Printf("warning: no scaling data available, skipping %s", ScalingFigure)
		return nil
	}

	p := plot.New()
	p.Title.Text = "VASP Scaling Performance"
	p.X.Label.Text = "Number of Nodes"
	p.Y.Label.Text = "Time (hours)"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.Add(plotter.NewGrid())

	nodes := make([]int, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Ints(nodes)
	ticks := make([]plot.Tick, len(nodes))
	for i, n := range nodes {
		ticks[i] = plot.Tick{Value: float64(n), Label: fmt.Sprintf("%d", n)}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)

	for i, s := range series {
		xys := make(plotter.XYs, 0, len(s.Points))
		for _, pt := range s.Points {
			if pt.Hours == nil {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(pt.Nodes), Y: *pt.Hours})
		}
		if len(xys) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return &RenderError{Figure: ScalingFigure, Err: err}
		}
		line.Color = plotutil.Color(i)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		if s.Device == sweep.DeviceGPU {
			line.Dashes = plotutil.Dashes(1)
		}
		p.Add(line, points)
		p.Legend.Add(s.Label(), line, points)
	}

	path := filepath.Join(r.OutDir, ScalingFigure)
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return &RenderError{Figure: ScalingFigure, Err: err}
	}
	log.Printf("wrote %s", path)
	return nil
}

// Functionals draws the grouped comparison bar chart. Absent functionals
// are skipped; with no values at all, nothing is drawn.
func (r *Renderer) Functionals(bars []results.BarValue) error {
	names := make([]string, 0, len(bars))
	values := make(plotter.Values, 0, len(bars))
	for _, b := range bars {
		if b.Hours == nil {
			continue
		}
		names = append(names, b.Functional)
		values = append(values, *b.Hours)
	}
	if len(values) == 0 {
		log.Printf("warning: no functional data available, skipping %s", FunctionalFigure)
		return nil
	}

	p := plot.New()
	p.Title.Text = "VASP Performance by Functional"
	p.X.Label.Text = "Functional"
	p.Y.Label.Text = "Time (hours)"
	p.Add(plotter.NewGrid())

	chart, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return &RenderError{Figure: FunctionalFigure, Err: err}
	}
	chart.Color = plotutil.Color(0)
	chart.LineStyle.Width = vg.Points(0.5)
	chart.LineStyle.Color = color.Gray{Y: 64}
	p.Add(chart)
	p.NominalX(names...)

	labels := make([]string, len(values))
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		labels[i] = fmt.Sprintf("%.2fh", v)
		xys[i] = plotter.XY{X: float64(i), Y: v}
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return &RenderError{Figure: FunctionalFigure, Err: err}
	}
	l.Offset = vg.Point{Y: 2 * vg.Millimeter}
	p.Add(l)
	p.Y.Max *= 1.1

	path := filepath.Join(r.OutDir, FunctionalFigure)
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return &RenderError{Figure: FunctionalFigure, Err: err}
	}
	log.Printf("wrote %s", path)
	return nil
}
