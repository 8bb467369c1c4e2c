package mediamgr

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "mediamgr"

	dropReasonClosed = "closed"
	dropReasonFull   = "queue_full"
	dropReasonMode   = "bad_sound_mode"
)

// Metrics 媒体管理器的 prometheus 指标
type Metrics struct {
	commandsTotal    *prometheus.CounterVec
	commandsDropped  *prometheus.CounterVec
	queueDepth       prometheus.Gauge
	routeChanges     *prometheus.CounterVec
	routeMismatch    prometheus.Counter
	soundsStarted    prometheus.Counter
	soundsRejected   prometheus.Counter
	callState        prometheus.Gauge
	handlerDurations prometheus.Histogram
}

// NewMetrics 创建指标；reg 为 nil 时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled by the worker, by command type",
		}, []string{"command"}),
		commandsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_dropped_total",
			Help:      "Commands dropped before reaching the worker",
		}, []string{"reason"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Commands waiting in the queue when the last one was dequeued",
		}),
		routeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_changes_total",
			Help:      "Route decisions, by effective route",
		}, []string{"route"}),
		routeMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_mismatch_total",
			Help:      "In-call route changes the platform did not apply",
		}),
		soundsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sounds_started_total",
			Help:      "Sounds admitted by the playback policy",
		}),
		soundsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sounds_rejected_total",
			Help:      "Sounds rejected by the playback policy",
		}),
		callState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "call_state",
			Help:      "Current call state (0=normal 1=incall 2=invideocall 3=hold)",
		}),
		handlerDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one command on the worker",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.commandsTotal,
			m.commandsDropped,
			m.queueDepth,
			m.routeChanges,
			m.routeMismatch,
			m.soundsStarted,
			m.soundsRejected,
			m.callState,
			m.handlerDurations,
		)
	}
	return m
}
