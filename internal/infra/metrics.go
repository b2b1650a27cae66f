package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка HTTP-запроса
	RequestDuration *prometheus.HistogramVec

	// Решения Authority Engine по действиям агента
	DecisionTotal *prometheus.CounterVec

	// Errors: отказы внешнего reasoner по стадиям
	ReasonerErrors *prometheus.CounterVec

	// Saturation: заполненность буфера записи сессий (backpressure)
	SessionBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meagent_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "status"}),

		DecisionTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meagent_authority_decisions_total",
			Help: "Authority decisions by action and outcome.",
		}, []string{"action", "decision"}),

		ReasonerErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meagent_reasoner_errors_total",
			Help: "Reasoner failures by stage and type.",
		}, []string{"stage", "type"}), // типы: timeout, upstream, rate_limit

		SessionBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "meagent_session_buffer_utilization",
			Help: "Current number of pending sessions in the recorder buffer.",
		}),
	}
}
