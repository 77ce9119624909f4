// Package metrics exposes the pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaionaro-go/fxpipeline/effects"
	"github.com/xaionaro-go/fxpipeline/scheduler"
	"github.com/xaionaro-go/fxpipeline/transform"
)

const namespace = "fxpipeline"

type Metrics struct {
	Registry *prometheus.Registry

	TransformDuration    *prometheus.HistogramVec
	TransformPassThrough *prometheus.CounterVec
	Reloads              *prometheus.CounterVec
}

var _ effects.Observer = (*Metrics)(nil)

// New creates the metrics in a dedicated registry; every metric carries
// the session ID as a constant label.
func New(sessionID string) *Metrics {
	constLabels := prometheus.Labels{"session": sessionID}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		TransformDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "transform",
			Name:        "duration_seconds",
			Help:        "Time spent applying a transform to a frame.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"kind"}),
		TransformPassThrough: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "transform",
			Name:        "pass_through_total",
			Help:        "Frames a transform returned unmodified (nothing detected, or a failure).",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "config_reloads_total",
			Help:        "Configuration reloads by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
	}
	m.Registry.MustRegister(
		m.TransformDuration,
		m.TransformPassThrough,
		m.Reloads,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveTransform(
	kind transform.Kind,
	duration time.Duration,
	passedThrough bool,
) {
	m.TransformDuration.WithLabelValues(kind.String()).Observe(duration.Seconds())
	if passedThrough {
		m.TransformPassThrough.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Reloads.WithLabelValues(result).Inc()
}

// RegisterScheduler exports the scheduler counters; they are read on every
// scrape.
func (m *Metrics) RegisterScheduler(sessionID string, getStats func() scheduler.Stats) error {
	return m.Registry.Register(newSchedulerCollector(sessionID, getStats))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
