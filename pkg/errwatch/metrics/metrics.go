// Package metrics provides a Prometheus-backed errwatch.WorkerObserver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/strongdm/errwatch/pkg/errwatch"
)

// Observer records delivery worker events as Prometheus metrics.
type Observer struct {
	queued        prometheus.Counter
	dropped       *prometheus.CounterVec
	sent          prometheus.Counter
	failed        prometheus.Counter
	queueDepth    prometheus.Gauge
	throttleLevel prometheus.Gauge
}

var _ errwatch.WorkerObserver = (*Observer)(nil)

// New creates an Observer and registers its collectors with reg. A nil reg
// leaves the collectors unregistered.
func New(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "errwatch_notices_queued_total",
			Help: "Total number of notices accepted by the delivery queue",
		}),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errwatch_notices_dropped_total",
				Help: "Total number of notices rejected by the delivery queue",
			},
			[]string{"reason"},
		),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "errwatch_notices_sent_total",
			Help: "Total number of notices delivered",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "errwatch_notices_failed_total",
			Help: "Total number of failed delivery attempts",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "errwatch_queue_depth",
			Help: "Current number of queued notices",
		}),
		throttleLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "errwatch_throttle_level",
			Help: "Current adaptive throttle level (0-100)",
		}),
	}

	if reg != nil {
		for _, c := range o.collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

func (o *Observer) collectors() []prometheus.Collector {
	return []prometheus.Collector{o.queued, o.dropped, o.sent, o.failed, o.queueDepth, o.throttleLevel}
}

// NoticeQueued records an accepted notice.
func (o *Observer) NoticeQueued(depth int) {
	o.queued.Inc()
	o.queueDepth.Set(float64(depth))
}

// NoticeDropped records a rejected notice.
func (o *Observer) NoticeDropped(reason string) {
	o.dropped.WithLabelValues(reason).Inc()
}

// NoticeSent records a delivered notice.
func (o *Observer) NoticeSent(depth int) {
	o.sent.Inc()
	o.queueDepth.Set(float64(depth))
}

// NoticeFailed records a failed attempt.
func (o *Observer) NoticeFailed(depth int) {
	o.failed.Inc()
	o.queueDepth.Set(float64(depth))
}

// ThrottleChanged records the throttle level.
func (o *Observer) ThrottleChanged(level int) {
	o.throttleLevel.Set(float64(level))
}
