package metrics

import "github.com/prometheus/client_golang/prometheus"

// Session and answer-pipeline metrics.
var (
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Name:      "sessions_active",
			Help:      "Number of live document sessions",
		},
	)

	SessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "sessions_swept_total",
			Help:      "Total number of sessions removed by the expiry sweep",
		},
	)

	AnswersBySource = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "answers_by_source_total",
			Help:      "Final answers by extraction source (verbatim vs context-recovered)",
		},
		[]string{"answer_type", "source"},
	)
)

var sessionMetricsRegistered bool

// RegisterSessionMetrics registers session metrics. Must be called once from main.
func RegisterSessionMetrics() {
	if sessionMetricsRegistered {
		return
	}
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(SessionsSweptTotal)
	prometheus.MustRegister(AnswersBySource)
	sessionMetricsRegistered = true
}
