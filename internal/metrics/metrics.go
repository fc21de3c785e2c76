// Package metrics records per-run statistics of the frontend: stage
// durations, primitives loaded, failures and design size. They can be written
// as a node-exporter textfile and, per stage, as JSON lines.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bsv_synth"

// Recorder collects run metrics. A nil *Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry
	stages   *prometheus.HistogramVec
	files    *prometheus.CounterVec
	loaded   prometheus.Counter
	failures *prometheus.CounterVec
	modules  prometheus.Gauge
	cells    prometheus.Gauge
	timing   *timingLog
}

// New creates a recorder with its own registry. When timingPath is set,
// every stage and file event is also appended there as a JSON line.
func New(timingPath string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of frontend stages.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage", "status"}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "netlist_files_total",
			Help:      "Netlist files read, by phase and status.",
		}, []string{"phase", "status"}),
		loaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "primitives_loaded_total",
			Help:      "Library primitives merged into the design.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Fatal failures by kind.",
		}, []string{"kind"}),
		modules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "design_modules",
			Help:      "Modules in the design after the last run.",
		}),
		cells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "design_cells",
			Help:      "Cells in the design after the last run.",
		}),
		timing: openTimingLog(time.Now(), timingPath),
	}
	r.registry.MustRegister(r.stages, r.files, r.loaded, r.failures, r.modules, r.cells)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Stage records the duration of a named stage that began at start.
func (r *Recorder) Stage(stage string, start time.Time, err error) {
	if r == nil {
		return
	}
	d := time.Since(start)
	status := statusOf(err)
	r.stages.WithLabelValues(stage, status).Observe(d.Seconds())
	r.timing.add(timingEvent{Stage: stage, Kind: "stage", Status: status}, start, d)
}

// File records one netlist read.
func (r *Recorder) File(phase, path string, start time.Time, err error) {
	if r == nil {
		return
	}
	status := statusOf(err)
	r.files.WithLabelValues(phase, status).Inc()
	r.timing.add(timingEvent{Stage: phase, Kind: "file", File: path, Status: status}, start, time.Since(start))
}

// PrimitivesLoaded adds n loaded primitives.
func (r *Recorder) PrimitivesLoaded(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.loaded.Add(float64(n))
}

// Failure counts a fatal failure of the given kind.
func (r *Recorder) Failure(kind string) {
	if r == nil {
		return
	}
	if kind == "" {
		kind = "other"
	}
	r.failures.WithLabelValues(kind).Inc()
}

// DesignSize sets the module and cell gauges.
func (r *Recorder) DesignSize(modules, cells int) {
	if r == nil {
		return
	}
	r.modules.Set(float64(modules))
	r.cells.Set(float64(cells))
}

// WriteTextfile writes all metrics in text exposition format, atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

// Close flushes the timing file. It returns the first timing write error.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.timing.close()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
