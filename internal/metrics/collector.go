// Package metrics counts remote auth calls for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
)

const namespace = "gqlsession"

// Collector implements auth.Observer on its own registry.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCollector creates and registers the session metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Remote auth calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of remote auth calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	c.registry.MustRegister(c.operations, c.duration)
	return c
}

// ObserveOperation implements auth.Observer.
func (c *Collector) ObserveOperation(op auth.Operation, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.operations.WithLabelValues(string(op), outcome).Inc()
	c.duration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the session metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
