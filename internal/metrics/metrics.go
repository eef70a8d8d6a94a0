// Package metrics records per-run pipeline counters in a private Prometheus
// registry. Runs are short-lived, so results are written in the node-exporter
// textfile format rather than served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the collectors for one process.
type Recorder struct {
	reg      *prometheus.Registry
	rows     prometheus.Gauge
	subjects prometheus.Gauge
	charts   *prometheus.CounterVec
	stage    *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// New builds a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scoreloom_students",
			Help: "Number of student rows in the last analyzed dataset.",
		}),
		subjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scoreloom_subjects",
			Help: "Number of subject columns in the last analyzed dataset.",
		}),
		charts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreloom_charts_total",
			Help: "Charts produced, by role and outcome.",
		}, []string{"role", "outcome"}),
		stage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scoreloom_stage_duration_seconds",
			Help:    "Wall time of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scoreloom_runs_total",
			Help: "Pipeline runs, by result.",
		}, []string{"result"}),
	}
	r.reg.MustRegister(r.rows, r.subjects, r.charts, r.stage, r.runs)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) Dataset(rows, subjects int) {
	if r == nil {
		return
	}
	r.rows.Set(float64(rows))
	r.subjects.Set(float64(subjects))
}

// Chart counts one chart outcome.
func (r *Recorder) Chart(role string, ok bool) {
	if r == nil {
		return
	}
	outcome := "rendered"
	if !ok {
		outcome = "failed"
	}
	r.charts.WithLabelValues(role, outcome).Inc()
}

// Stage returns a func that observes the elapsed time when called.
func (r *Recorder) Stage(name string) func() {
	if r == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		r.stage.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

func (r *Recorder) Run(err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.runs.WithLabelValues(result).Inc()
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
