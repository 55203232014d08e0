// Package metrics exports sync outcomes as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/custodia-labs/caresync/internal/core/domain"
	"github.com/custodia-labs/caresync/internal/core/ports/driven"
)

// Ensure Collector implements the interface.
var _ driven.SyncObserver = (*Collector)(nil)

const namespace = "caresync"

// Label values for the outcome label.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
)

// Collector records every completed sync call in its own registry.
type Collector struct {
	registry *prometheus.Registry

	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	items     *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	errors    *prometheus.CounterVec
	lastOK    *prometheus.GaugeVec
}

// New creates a Collector with the sync metrics and the Go runtime and
// process collectors registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync calls by entity type and outcome.",
		}, []string{"entity", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"entity"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_items_total",
			Help:      "Items moved by sync calls, by direction.",
		}, []string{"entity", "direction"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_conflicts_total",
			Help:      "Remote documents that overwrote a local row.",
		}, []string{"entity"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_errors_total",
			Help:      "Sync errors by entity type and error kind.",
		}, []string{"entity", "kind"}),
		lastOK: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_last_success_timestamp_seconds",
			Help:      "Unix time of the last completed sync call.",
		}, []string{"entity"}),
	}

	c.registry.MustRegister(
		c.runs,
		c.duration,
		c.items,
		c.conflicts,
		c.errors,
		c.lastOK,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry to serve.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveSync records one sync result.
func (c *Collector) ObserveSync(entityType string, result domain.SyncResult, duration time.Duration) {
	c.duration.WithLabelValues(entityType).Observe(duration.Seconds())

	switch r := result.(type) {
	case domain.Success:
		c.runs.WithLabelValues(entityType, OutcomeSuccess).Inc()
		c.items.WithLabelValues(entityType, "up").Add(float64(r.Uploaded))
		c.items.WithLabelValues(entityType, "down").Add(float64(r.Downloaded))
		c.conflicts.WithLabelValues(entityType).Add(float64(r.Conflicts))
	case domain.PartialSuccess:
		c.runs.WithLabelValues(entityType, OutcomePartial).Inc()
		c.items.WithLabelValues(entityType, "mixed").Add(float64(r.SuccessCount))
		for _, err := range r.Errors {
			c.errors.WithLabelValues(entityType, string(kindOf(err))).Inc()
		}
	case domain.Failure:
		c.runs.WithLabelValues(entityType, OutcomeFailure).Inc()
		c.errors.WithLabelValues(entityType, string(kindOf(r.Err))).Inc()
		return
	}

	c.lastOK.WithLabelValues(entityType).SetToCurrentTime()
}

func kindOf(err *domain.DomainError) domain.ErrorKind {
	if err == nil {
		return domain.KindUnknown
	}
	return err.Kind
}
