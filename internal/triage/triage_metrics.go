package triage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/oasis/internal/advisory"
)

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal      *prometheus.CounterVec
	TriageDuration    *prometheus.HistogramVec
	FailuresTotal     *prometheus.CounterVec
	AdvisoryCalls     *prometheus.CounterVec
	AdvisoryDuration  *prometheus.HistogramVec
	AdvisoryTokensIn  prometheus.Counter
	AdvisoryTokensOut prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oasis_triages_total",
			Help: "Completed triages by urgency and advice outcome.",
		}, []string{"urgency", "advice"}),
		TriageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oasis_triage_duration_seconds",
			Help:    "Duration of triages in seconds, including the advisory call.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms .. ~41s
		}, []string{"urgency"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oasis_triage_failures_total",
			Help: "Triages rejected before classification completed, by stage.",
		}, []string{"stage"}),
		AdvisoryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oasis_advisory_calls_total",
			Help: "Advisory backend calls by model and result.",
		}, []string{"model", "result"}),
		AdvisoryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oasis_advisory_call_duration_seconds",
			Help:    "Duration of advisory backend calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s .. ~51s
		}, []string{"model"}),
		AdvisoryTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oasis_advisory_tokens_input_total",
			Help: "Total advisory input tokens consumed.",
		}),
		AdvisoryTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oasis_advisory_tokens_output_total",
			Help: "Total advisory output tokens consumed.",
		}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.TriageDuration,
		m.FailuresTotal,
		m.AdvisoryCalls,
		m.AdvisoryDuration,
		m.AdvisoryTokensIn,
		m.AdvisoryTokensOut,
	)

	return m
}

// Hooks returns EngineHooks that increment the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnComplete: func(e *CompleteEvent) {
			advice := "ok"
			if e.AdviceError != "" {
				advice = e.AdviceError
			}
			m.TriagesTotal.WithLabelValues(string(e.Urgency), advice).Inc()
			m.TriageDuration.WithLabelValues(string(e.Urgency)).Observe(e.Duration)
		},
		OnFailure: func(stage string) {
			m.FailuresTotal.WithLabelValues(stage).Inc()
		},
	}
}

// AdvisoryHooks returns advisory.Hooks that record backend calls.
func (m *Metrics) AdvisoryHooks() advisory.Hooks {
	return advisory.Hooks{
		OnCall: func(model, kind string, duration float64, usage advisory.Usage) {
			result := "ok"
			if kind != "" {
				result = kind
			}
			m.AdvisoryCalls.WithLabelValues(model, result).Inc()
			m.AdvisoryDuration.WithLabelValues(model).Observe(duration)
			m.AdvisoryTokensIn.Add(float64(usage.InputTokens))
			m.AdvisoryTokensOut.Add(float64(usage.OutputTokens))
		},
	}
}
