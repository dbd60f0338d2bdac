// Package metrics exposes reconciliation counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamadbah2/herd/internal/domain/models"
)

// Recorder receives reconciliation events from the herd service.
type Recorder interface {
	SweepCompleted(result models.SweepResult, duration time.Duration)
	OpsCommitted(operation string, ops int)
	CommitFailed(operation string)
	Resynced(success bool)
}

// Nop discards every event.
type Nop struct{}

func (Nop) SweepCompleted(models.SweepResult, time.Duration) {}

func (Nop) OpsCommitted(string, int) {}

func (Nop) CommitFailed(string) {}

func (Nop) Resynced(bool) {}

// Prometheus records events on its own registry.
type Prometheus struct {
	registry       *prometheus.Registry
	sweepOutcomes  *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	committedOps   *prometheus.CounterVec
	commitFailures *prometheus.CounterVec
	resyncs        *prometheus.CounterVec
}

// NewPrometheus registers the herd collectors under namespace.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = "herd"
	}
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		sweepOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "outcomes_total",
			Help:      "Coverages resolved by verification sweeps, by outcome.",
		}, []string{"outcome"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Wall time of verification sweeps.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}),
		committedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "committed_ops_total",
			Help:      "Document writes committed, by operation.",
		}, []string{"operation"}),
		commitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_failures_total",
			Help:      "Failed commits, by operation.",
		}, []string{"operation"}),
		resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Snapshot resynchronizations from the store.",
		}, []string{"result"}),
	}
	p.registry.MustRegister(p.sweepOutcomes, p.sweepDuration, p.committedOps, p.commitFailures, p.resyncs)
	return p
}

// SweepCompleted implements Recorder.
func (p *Prometheus) SweepCompleted(result models.SweepResult, duration time.Duration) {
	p.sweepOutcomes.WithLabelValues("linked").Add(float64(result.Linked))
	p.sweepOutcomes.WithLabelValues("registered").Add(float64(result.Registered))
	p.sweepOutcomes.WithLabelValues("pending").Add(float64(result.Pending))
	p.sweepOutcomes.WithLabelValues("discovered").Add(float64(result.Discovered))
	p.sweepOutcomes.WithLabelValues("paternity_confirmed").Add(float64(result.PaternityConfirmed))
	p.sweepDuration.Observe(duration.Seconds())
}

// OpsCommitted implements Recorder.
func (p *Prometheus) OpsCommitted(operation string, ops int) {
	p.committedOps.WithLabelValues(operation).Add(float64(ops))
}

// CommitFailed implements Recorder.
func (p *Prometheus) CommitFailed(operation string) {
	p.commitFailures.WithLabelValues(operation).Inc()
}

// Resynced implements Recorder.
func (p *Prometheus) Resynced(success bool) {
	result := "ok"
	if !success {
		result = "error"
	}
	p.resyncs.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
