package guardian

import "time"

const tracerName = "github.com/hostguard/guardian-backend/guardian"

const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeSkipped  = "skipped"
)

// Metrics receives Guardian pipeline events.
type Metrics interface {
	ObserveClassification(outcome string, d time.Duration)
	AnalysisRecorded(flagged bool)
	AlertCreated(alertType, severity string)
	NotificationSent(channel string, ok bool)
	AlertResolved()
}

type NopMetrics struct{}

func (NopMetrics) ObserveClassification(string, time.Duration) {}
func (NopMetrics) AnalysisRecorded(bool)                       {}
func (NopMetrics) AlertCreated(string, string)                 {}
func (NopMetrics) NotificationSent(string, bool)               {}
func (NopMetrics) AlertResolved()                              {}
