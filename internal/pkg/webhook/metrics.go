package webhook

import "time"

// Metrics receives pipeline observations. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordReceived(eventType, outcome string)
	RecordProcessed(eventType, action, status string)
	ObserveRun(d time.Duration)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) RecordReceived(string, string)          {}
func (NoopMetrics) RecordProcessed(string, string, string) {}
func (NoopMetrics) ObserveRun(time.Duration)               {}
