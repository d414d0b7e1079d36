package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

type Metrics struct {
	// Latency: сколько заняла проверка (включая хранилище)
	CheckDuration *prometheus.HistogramVec

	// Traffic: решения по причинам (CURRENT, NO_ACK, ...)
	DecisionsTotal *prometheus.CounterVec

	// Errors: классификация отказов
	ErrorTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - closed, 0.5 - half-open, 1 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		CheckDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gate_check_duration_seconds",
			Help:    "Histogram of compliance check latencies.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"reason"}),

		DecisionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gate_decisions_total",
			Help: "Total number of compliance decisions by reason.",
		}, []string{"allowed", "reason"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gate_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: invalid_argument, not_initialized, notify

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "gate_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 0.5=half-open, 1=open).",
		}, []string{"breaker"}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gate_audit_buffer_utilization",
			Help: "Current number of violation records in audit buffer.",
		}),
	}
}

// ObserveBreaker подходит как OnStateChange для gobreaker.
func (m *Metrics) ObserveBreaker(name string, _, to gobreaker.State) {
	var v float64
	switch to {
	case gobreaker.StateOpen:
		v = 1
	case gobreaker.StateHalfOpen:
		v = 0.5
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}
