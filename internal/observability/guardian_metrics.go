package observability

import (
	"strconv"
	"time"
)

// GuardianMetrics adapts Metrics to the guardian pipeline's event hooks.
type GuardianMetrics struct {
	m *Metrics
}

func NewGuardianMetrics(m *Metrics) GuardianMetrics {
	return GuardianMetrics{m: m}
}

func (g GuardianMetrics) ObserveClassification(outcome string, d time.Duration) {
	if g.m == nil {
		return
	}
	g.m.classifications.WithLabelValues(outcome).Inc()
	if d > 0 {
		g.m.classifyLatency.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

func (g GuardianMetrics) AnalysisRecorded(flagged bool) {
	if g.m == nil {
		return
	}
	g.m.analyses.WithLabelValues(strconv.FormatBool(flagged)).Inc()
}

func (g GuardianMetrics) AlertCreated(alertType, severity string) {
	if g.m == nil {
		return
	}
	g.m.alertsCreated.WithLabelValues(alertType, severity).Inc()
}

func (g GuardianMetrics) NotificationSent(channel string, ok bool) {
	if g.m == nil {
		return
	}
	g.m.notifications.WithLabelValues(channel, resultLabel(ok)).Inc()
}

func (g GuardianMetrics) AlertResolved() {
	if g.m == nil {
		return
	}
	g.m.alertsResolved.Inc()
}
