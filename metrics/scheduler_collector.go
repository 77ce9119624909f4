package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xaionaro-go/fxpipeline/scheduler"
)

type schedulerCollector struct {
	getStats func() scheduler.Stats
	frames   *prometheus.Desc
	dropped  *prometheus.Desc
	sinkErrs *prometheus.Desc
	inFlight *prometheus.Desc
	buffered *prometheus.Desc
}

var _ prometheus.Collector = (*schedulerCollector)(nil)

func newSchedulerCollector(sessionID string, getStats func() scheduler.Stats) *schedulerCollector {
	constLabels := prometheus.Labels{"session": sessionID}
	return &schedulerCollector{
		getStats: getStats,
		frames: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "frames_total"),
			"Frames by the final state.",
			[]string{"state"}, constLabels,
		),
		dropped: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "dropped_frames_total"),
			"Dropped frames by the reason.",
			[]string{"reason"}, constLabels,
		),
		sinkErrs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "sink_errors_total"),
			"Frames the sink failed to accept.",
			nil, constLabels,
		),
		inFlight: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "frames_in_flight"),
			"Frames being processed right now.",
			nil, constLabels,
		),
		buffered: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "frames_buffered"),
			"Processed frames waiting in the reorder buffer.",
			nil, constLabels,
		),
	}
}

func (c *schedulerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frames
	ch <- c.dropped
	ch <- c.sinkErrs
	ch <- c.inFlight
	ch <- c.buffered
}

func (c *schedulerCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.getStats()
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.Captured), scheduler.StateCaptured.String())
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.Forwarded), scheduler.StateForwarded.String())
	ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(s.Dropped()), scheduler.StateDropped.String())
	for reason, v := range map[string]uint64{
		"busy":     s.DroppedBusy,
		"overflow": s.DroppedOverflow,
		"stale":    s.DroppedStale,
		"closed":   s.DroppedClosed,
	} {
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(v), reason)
	}
	ch <- prometheus.MustNewConstMetric(c.sinkErrs, prometheus.CounterValue, float64(s.SinkErrors))
	ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue, float64(s.InFlight))
	ch <- prometheus.MustNewConstMetric(c.buffered, prometheus.GaugeValue, float64(s.Buffered))
}
