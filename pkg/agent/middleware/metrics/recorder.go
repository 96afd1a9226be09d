// Package metrics provides metrics recording for agent capability calls.
package metrics

import "time"

// Recorder defines the interface for recording capability call metrics.
type Recorder interface {
	// ObserveRequest records metrics for one completed call.
	ObserveRequest(
		provider, model string,
		promptTokens, completionTokens int64,
		cost float64,
		success bool,
		errorType string,
		duration time.Duration,
	)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(
	_, _ string,
	_, _ int64,
	_ float64,
	_ bool,
	_ string,
	_ time.Duration,
) {
	// No-op
}
