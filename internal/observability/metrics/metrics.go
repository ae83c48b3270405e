package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the intake pipeline.
type IntakeMetrics struct {
	messagesTotal    *prometheus.CounterVec
	validationFailed *prometheus.CounterVec
	leadsCreated     *prometheus.CounterVec
	leadsAssigned    prometheus.Counter
	lawyersNotified  prometheus.Counter
	aiRequests       *prometheus.CounterVec
	aiLatency        prometheus.Histogram
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Total user messages processed",
		}, []string{"platform", "mode"}),
		validationFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "conversation",
			Name:      "validation_failures_total",
			Help:      "Total answers rejected by step validation",
		}, []string{"field"}),
		leadsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "leads",
			Name:      "created_total",
			Help:      "Total leads created",
		}, []string{"platform"}),
		leadsAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "leads",
			Name:      "assigned_total",
			Help:      "Total leads claimed by a lawyer",
		}),
		lawyersNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "leads",
			Name:      "lawyer_notifications_total",
			Help:      "Total claim notifications delivered to lawyers",
		}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total assistant generation attempts",
		}, []string{"outcome"}),
		aiLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "ai",
			Name:      "latency_seconds",
			Help:      "Latency of assistant generation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.messagesTotal,
		m.validationFailed,
		m.leadsCreated,
		m.leadsAssigned,
		m.lawyersNotified,
		m.aiRequests,
		m.aiLatency,
	)
	return m
}

func (m *IntakeMetrics) MessageProcessed(platform, mode string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(platform, mode).Inc()
}

func (m *IntakeMetrics) ValidationFailed(field string) {
	if m == nil {
		return
	}
	m.validationFailed.WithLabelValues(field).Inc()
}

func (m *IntakeMetrics) LeadCreated(platform string) {
	if m == nil {
		return
	}
	m.leadsCreated.WithLabelValues(platform).Inc()
}

func (m *IntakeMetrics) LeadAssigned() {
	if m == nil {
		return
	}
	m.leadsAssigned.Inc()
}

func (m *IntakeMetrics) LawyerNotified() {
	if m == nil {
		return
	}
	m.lawyersNotified.Inc()
}

func (m *IntakeMetrics) AIRequest(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.aiRequests.WithLabelValues(outcome).Inc()
	m.aiLatency.Observe(seconds)
}
