// Package metrics exposes Prometheus counters for the filesystem core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "phofs"

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Collector holds the filesystem metrics. A nil *Collector is valid and
// records nothing, so callers never need to check whether metrics are enabled.
type Collector struct {
	restrictionDenials *prometheus.CounterVec
	operations         *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	walkEntries        *prometheus.CounterVec
	mountChecks        *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		restrictionDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restriction_denials_total",
				Help:      "Total number of paths rejected by restrictions",
			},
			[]string{"label", "access"}, // access: read, write
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of filesystem operations",
			},
			[]string{"op", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time taken by filesystem operations",
				// 1ms to ~32s
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
			},
			[]string{"op"},
		),
		walkEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "walk_entries_total",
				Help:      "Total number of entries visited by tree walks",
			},
			[]string{"op"},
		),
		mountChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mount_checks_total",
				Help:      "Total number of mount state queries by result",
			},
			[]string{"state"},
		),
	}

	if reg != nil {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.restrictionDenials.Describe(ch)
	c.operations.Describe(ch)
	c.operationDuration.Describe(ch)
	c.walkEntries.Describe(ch)
	c.mountChecks.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.restrictionDenials.Collect(ch)
	c.operations.Collect(ch)
	c.operationDuration.Collect(ch)
	c.walkEntries.Collect(ch)
	c.mountChecks.Collect(ch)
}

// RestrictionDenied counts a path rejected by the restrictions named label.
func (c *Collector) RestrictionDenied(label string, write bool) {
	if c == nil {
		return
	}
	access := "read"
	if write {
		access = "write"
	}
	c.restrictionDenials.WithLabelValues(label, access).Inc()
}

// Operation records the outcome and duration of op started at start.
func (c *Collector) Operation(op string, start time.Time, err error) {
	if c == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	c.operations.WithLabelValues(op, status).Inc()
	c.operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// WalkEntries adds n visited entries for the walk op.
func (c *Collector) WalkEntries(op string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.walkEntries.WithLabelValues(op).Add(float64(n))
}

// MountCheck counts a mount state query result.
func (c *Collector) MountCheck(state string) {
	if c == nil {
		return
	}
	c.mountChecks.WithLabelValues(state).Inc()
}
