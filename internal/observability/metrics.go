package observability

import (
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Registry is a small in-process counter/gauge registry. The driver is a
// one-shot process, so the registry's job is a trustworthy final summary
// rather than an exposition endpoint.
type Registry struct {
	mu       sync.Mutex
	counters map[string]float64
	gauges   map[string]float64
}

func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]float64),
		gauges:   make(map[string]float64),
	}
}

var Default = NewRegistry()

func (r *Registry) Inc(name string) {
	r.IncBy(name, 1)
}

func (r *Registry) IncBy(name string, delta float64) {
	if delta == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

func (r *Registry) SetGauge(name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

type MetricPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type Snapshot struct {
	Counters []MetricPoint `json:"counters"`
	Gauges   []MetricPoint `json:"gauges"`
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Snapshot{
		Counters: make([]MetricPoint, 0, len(r.counters)),
		Gauges:   make([]MetricPoint, 0, len(r.gauges)),
	}
	for name, v := range r.counters {
		out.Counters = append(out.Counters, MetricPoint{Name: name, Value: v})
	}
	for name, v := range r.gauges {
		out.Gauges = append(out.Gauges, MetricPoint{Name: name, Value: v})
	}
	sort.Slice(out.Counters, func(i, j int) bool { return out.Counters[i].Name < out.Counters[j].Name })
	sort.Slice(out.Gauges, func(i, j int) bool { return out.Gauges[i].Name < out.Gauges[j].Name })
	return out
}

func (r *Registry) Counter(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}

func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = make(map[string]float64)
	r.gauges = make(map[string]float64)
}

// LogSummary writes the final counter values as one log line per metric.
func (r *Registry) LogSummary() {
	s := r.Snapshot()
	parts := make([]string, 0, len(s.Counters))
	for _, p := range s.Counters {
		parts = append(parts, p.Name+"="+strconv.FormatFloat(p.Value, 'f', -1, 64))
	}
	if len(parts) == 0 {
		return
	}
	log.Printf("summary: %s", strings.Join(parts, " "))
}
