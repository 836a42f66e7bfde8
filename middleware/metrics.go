package middleware

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// Sentinel errors collectors can match against to classify an outcome.
var (
	ErrFailure = errors.New("processing failed")
	ErrCancel  = errors.New("processing cancelled")
)

// Metrics is one measurement of one call through a stage: timing,
// cardinality, the in-flight count at the moment the call started, plus
// whatever Metadata and RetryState the surrounding middleware attached.
type Metrics struct {
	Start    time.Time
	Duration time.Duration
	Input    int
	Output   int
	InFlight int

	Metadata   Metadata
	RetryState *RetryState

	Error error
}

// Success returns 1 when the call succeeded, 0 otherwise; the numeric
// form sums directly into counters.
func (m *Metrics) Success() int {
	if m.Error == nil {
		return 1
	}
	return 0
}

// Failure returns 1 when the call's error wraps ErrFailure, 0 otherwise.
// Other errors count toward neither Success nor Failure.
func (m *Metrics) Failure() int {
	if errors.Is(m.Error, ErrFailure) {
		return 1
	}
	return 0
}

// Cancel returns 1 when the call's error wraps ErrCancel, 0 otherwise.
func (m *Metrics) Cancel() int {
	if errors.Is(m.Error, ErrCancel) {
		return 1
	}
	return 0
}

// Retry returns 1 when the call failed through the retry path, 0
// otherwise.
func (m *Metrics) Retry() int {
	if errors.Is(m.Error, ErrRetry) {
		return 1
	}
	return 0
}

// MetricsCollector receives one Metrics value per call.
type MetricsCollector func(metrics *Metrics)

// MetricsMiddleware measures every call to the wrapped transform and
// hands the measurement to collect. The in-flight gauge is shared across
// all calls through the same middleware value.
func MetricsMiddleware[In, Out any](collect MetricsCollector) Middleware[In, Out] {
	inFlight := atomic.Int32{}
	return func(next ProcessFunc[In, Out]) ProcessFunc[In, Out] {
		return func(ctx context.Context, in In) ([]Out, error) {
			m := &Metrics{
				Start:      time.Now(),
				Input:      1,
				InFlight:   int(inFlight.Add(1)),
				Metadata:   MetadataFromContext(ctx),
				RetryState: RetryStateFromContext(ctx),
			}

			out, err := next(ctx, in)

			m.Duration = time.Since(m.Start)
			inFlight.Add(-1)
			m.Output = len(out)
			m.Error = err

			if m.RetryState != nil {
				m.RetryState.Duration = time.Since(m.RetryState.Start)
			}

			collect(m)

			return out, err
		}
	}
}

// DistributeMetrics fans one measurement out to several collectors.
func DistributeMetrics(collectors ...MetricsCollector) MetricsCollector {
	return func(m *Metrics) {
		for _, c := range collectors {
			c(m)
		}
	}
}
