// Package metrics holds the Prometheus collectors of the tracing server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "frametrace"

// Arm results.
const (
	ArmAccepted = "accepted"
	ArmBusy     = "busy"
	ArmRejected = "rejected"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Arms             *prometheus.CounterVec
	Captures         prometheus.Counter
	CapturedLines    prometheus.Counter
	Clears           prometheus.Counter
	ResourceDeletes  *prometheus.CounterVec
	Frame            prometheus.Gauge
	CaptureBuildTime prometheus.Histogram
	Requests         *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// reg may be nil, in which case nothing is registered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Arms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arms_total",
			Help:      "Number of trace requests by result",
		}, []string{"result"}),
		Captures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_total",
			Help:      "Number of published frame captures",
		}),
		CapturedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captured_lines_total",
			Help:      "Number of trace lines recorded in captured frames",
		}),
		Clears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clears_total",
			Help:      "Number of clear requests",
		}),
		ResourceDeletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_deletes_total",
			Help:      "Number of resource deletions forwarded to the renderer",
		}, []string{"kind"}),
		Frame: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame",
			Help:      "Last frame counter seen by the tracer",
		}),
		CaptureBuildTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_build_seconds",
			Help:      "Time spent building the trace tree at the end of a captured frame",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of tracing requests by action and status",
		}, []string{"action", "status"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Arms, m.Captures, m.CapturedLines, m.Clears,
			m.ResourceDeletes, m.Frame, m.CaptureBuildTime, m.Requests,
		)
	}
	return m
}

func (m *Metrics) Arm(result string) {
	if m == nil {
		return
	}
	m.Arms.WithLabelValues(result).Inc()
}

func (m *Metrics) Captured(lines int, buildTime time.Duration) {
	if m == nil {
		return
	}
	m.Captures.Inc()
	m.CapturedLines.Add(float64(lines))
	m.CaptureBuildTime.Observe(buildTime.Seconds())
}

func (m *Metrics) Cleared() {
	if m == nil {
		return
	}
	m.Clears.Inc()
}

func (m *Metrics) Deleted(kind string) {
	if m == nil {
		return
	}
	m.ResourceDeletes.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetFrame(counter uint64) {
	if m == nil {
		return
	}
	m.Frame.Set(float64(counter))
}

func (m *Metrics) Request(action, status string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(action, status).Inc()
}
