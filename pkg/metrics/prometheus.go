package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles   *prometheus.CounterVec
	signals  *prometheus.CounterVec
	trades   *prometheus.CounterVec
	profit   *prometheus.CounterVec
	accuracy *prometheus.GaugeVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivbot_cycles_total",
				Help: "Decision cycles by outcome",
			},
			[]string{"outcome"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivbot_signals_total",
				Help: "Matched candlestick patterns by decision",
			},
			[]string{"pattern", "decision"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivbot_trades_total",
				Help: "Settled trades by pattern and result",
			},
			[]string{"pattern", "result"},
		),
		profit: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivbot_profit_abs_total",
				Help: "Absolute realised profit, split by result",
			},
			[]string{"pattern", "result"},
		),
		accuracy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "derivbot_pattern_accuracy_percent",
				Help: "Last recorded accuracy per pattern",
			},
			[]string{"pattern"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "derivbot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "derivbot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordCycle(outcome string) {
	r.cycles.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordSignal(pattern, decision string) {
	r.signals.WithLabelValues(pattern, decision).Inc()
}

// RecordTrade counts a settled trade. Counters cannot go down, so losses are
// accumulated as a positive amount under result="loss".
func (r *Recorder) RecordTrade(pattern, result string, profit float64) {
	r.trades.WithLabelValues(pattern, result).Inc()
	if profit < 0 {
		profit = -profit
	}
	r.profit.WithLabelValues(pattern, result).Add(profit)
}

func (r *Recorder) RecordAccuracy(pattern string, accuracy float64) {
	r.accuracy.WithLabelValues(pattern).Set(accuracy)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordCycle(string)                  {}
func (Nop) RecordSignal(string, string)         {}
func (Nop) RecordTrade(string, string, float64) {}
func (Nop) RecordAccuracy(string, float64)      {}
func (Nop) RecordError(string)                  {}
func (Nop) RecordLatency(string, float64)       {}
