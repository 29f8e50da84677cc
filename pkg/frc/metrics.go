package frc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opWrite = "write"
	opRead  = "read"
	opSave  = "save"
	opLoad  = "load"
)

// Metrics counts codec activity. A nil *Metrics records nothing.
type Metrics struct {
	framesTotal       *prometheus.CounterVec
	bytesTotal        *prometheus.CounterVec
	failuresTotal     *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewMetrics creates codec metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		framesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framerec_frc_frames_total",
				Help: "Total number of recording frames processed",
			},
			[]string{"operation", "kind"},
		),

		bytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framerec_frc_bytes_total",
				Help: "Total number of frame bytes processed",
			},
			[]string{"operation"},
		),

		failuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framerec_frc_failures_total",
				Help: "Total number of failed codec operations",
			},
			[]string{"operation"},
		),

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framerec_frc_operation_duration_seconds",
				Help:    "Save and load duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) frame(operation string, tag Tag, size int) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(operation, tag.String()).Inc()
	m.bytesTotal.WithLabelValues(operation).Add(float64(size))
}

func (m *Metrics) failure(operation string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failure(operation)
	}
}
