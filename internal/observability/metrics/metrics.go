package metrics

import "github.com/prometheus/client_golang/prometheus"

// Message outcomes.
const (
	MessageAccepted = "accepted"
	MessageRejected = "rejected"
	MessageDegraded = "degraded"
)

// Completion triggers.
const (
	CompletionAuto   = "auto"
	CompletionManual = "manual"
)

// Extraction results.
const (
	ExtractionSuccess     = "success"
	ExtractionParseError  = "parse_error"
	ExtractionRateLimited = "rate_limited"
	ExtractionUnavailable = "unavailable"
)

// IntakeMetrics exposes counters/histograms for intake sessions.
type IntakeMetrics struct {
	sessionsStarted   *prometheus.CounterVec
	messagesTotal     *prometheus.CounterVec
	completionsTotal  *prometheus.CounterVec
	extractionsTotal  *prometheus.CounterVec
	extractionLatency prometheus.Histogram
	escalationsTotal  prometheus.Counter
	appointmentsTotal *prometheus.CounterVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carefront",
			Subsystem: "intake",
			Name:      "sessions_started_total",
			Help:      "Intake sessions started, by whether a patient was identified",
		}, []string{"identified", "degraded"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carefront",
			Subsystem: "intake",
			Name:      "messages_total",
			Help:      "Patient messages by outcome",
		}, []string{"outcome"}),
		completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carefront",
			Subsystem: "intake",
			Name:      "completions_total",
			Help:      "Sessions handed to report extraction, by trigger",
		}, []string{"trigger"}),
		extractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carefront",
			Subsystem: "report",
			Name:      "extractions_total",
			Help:      "Report extraction attempts by result",
		}, []string{"result"}),
		extractionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carefront",
			Subsystem: "report",
			Name:      "extraction_latency_seconds",
			Help:      "Latency of report extraction calls",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		}),
		escalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carefront",
			Subsystem: "report",
			Name:      "escalations_total",
			Help:      "Reports whose urgency was raised because red flags were present",
		}),
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carefront",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment requests and status changes, by resulting status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.sessionsStarted,
		m.messagesTotal,
		m.completionsTotal,
		m.extractionsTotal,
		m.extractionLatency,
		m.escalationsTotal,
		m.appointmentsTotal,
	)
	return m
}

func (m *IntakeMetrics) ObserveSessionStarted(identified, degraded bool) {
	if m == nil {
		return
	}
	m.sessionsStarted.WithLabelValues(boolLabel(identified), boolLabel(degraded)).Inc()
}

func (m *IntakeMetrics) ObserveMessage(outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(outcome).Inc()
}

func (m *IntakeMetrics) ObserveCompletion(trigger string) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(trigger).Inc()
}

func (m *IntakeMetrics) ObserveExtraction(result string, seconds float64) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(result).Inc()
	m.extractionLatency.Observe(seconds)
}

func (m *IntakeMetrics) ObserveEscalation() {
	if m == nil {
		return
	}
	m.escalationsTotal.Inc()
}

func (m *IntakeMetrics) ObserveAppointment(status string) {
	if m == nil {
		return
	}
	m.appointmentsTotal.WithLabelValues(status).Inc()
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
