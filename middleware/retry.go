package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Sentinel errors a caller can match to learn why retrying gave up. Each
// wraps ErrRetry, and the terminal error additionally unwraps to every
// per-attempt cause, so errors.Is reaches both the category and the
// underlying failure.
var (
	// ErrRetry is the base error for the retry path.
	ErrRetry = errors.New("fop retry")

	// ErrRetryMaxAttempts reports that every allowed attempt failed.
	ErrRetryMaxAttempts = fmt.Errorf("%w: max attempts reached", ErrRetry)

	// ErrRetryTimeout reports that the overall retry budget ran out.
	ErrRetryTimeout = fmt.Errorf("%w: timeout reached", ErrRetry)

	// ErrRetryNotRetryable reports an error the ShouldRetry policy
	// refused to retry.
	ErrRetryNotRetryable = fmt.Errorf("%w: not retryable", ErrRetry)
)

// BackoffFunc returns the wait before a retry attempt. attempt is
// one-based: 1 before the first retry, 2 before the second.
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff waits the same base delay before every retry. jitter
// randomizes the delay by the given fraction: 0 is exact, 0.2 is ±20%.
func ConstantBackoff(delay time.Duration, jitter float64) BackoffFunc {
	applyJitter := newApplyJitterFunc(jitter)
	return func(attempt int) time.Duration {
		return applyJitter(delay)
	}
}

// ExponentialBackoff waits initialDelay * factor^(attempt-1) with jitter,
// capped at maxDelay (0 = uncapped).
func ExponentialBackoff(initialDelay time.Duration, factor float64, maxDelay time.Duration, jitter float64) BackoffFunc {
	applyJitter := newApplyJitterFunc(jitter)
	return func(attempt int) time.Duration {
		backoff := time.Duration(float64(initialDelay) * math.Pow(factor, float64(attempt-1)))
		if maxDelay > 0 && backoff > maxDelay {
			backoff = maxDelay
		}
		return applyJitter(backoff)
	}
}

// ShouldRetryFunc decides whether a failed attempt is worth repeating.
type ShouldRetryFunc func(error) bool

// ShouldRetry retries only the listed errors; with none listed, every
// error is retried.
func ShouldRetry(errs ...error) ShouldRetryFunc {
	if len(errs) == 0 {
		return func(err error) bool { return true }
	}
	return func(err error) bool {
		for _, e := range errs {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}
}

// ShouldNotRetry retries everything except the listed errors; with none
// listed, nothing is retried.
func ShouldNotRetry(errs ...error) ShouldRetryFunc {
	if len(errs) == 0 {
		return func(err error) bool { return false }
	}
	return func(err error) bool {
		for _, e := range errs {
			if errors.Is(err, e) {
				return false
			}
		}
		return true
	}
}

// RetryConfig configures the retry policy.
type RetryConfig struct {
	// ShouldRetry decides which errors are worth repeating. Nil retries
	// every error.
	ShouldRetry ShouldRetryFunc

	// Backoff produces the wait between attempts. Nil means a constant
	// second with ±20% jitter.
	Backoff BackoffFunc

	// MaxAttempts caps total attempts including the first. Zero means 3;
	// negative means unlimited.
	MaxAttempts int

	// Timeout caps the combined duration of all attempts and waits. Zero
	// or negative means the one-minute default.
	Timeout time.Duration
}

// RetryState tracks the progress and history of retry attempts.
type RetryState struct {
	// Timeout is the configured overall timeout for all attempts.
	Timeout time.Duration
	// MaxAttempts is the configured maximum number of attempts.
	MaxAttempts int
	// Start is the time when the first attempt started.
	Start time.Time
	// Attempts is the total number of processing attempts made (1-based).
	Attempts int
	// Duration is the total elapsed time since Start.
	Duration time.Duration
	// Causes is a list of all errors encountered during attempts.
	Causes []error
	// Err is the error that caused the retry process to abort (final error).
	Err error
}

// RetryStateFromContext returns the state of the retry loop surrounding
// the current attempt, or nil outside one. The logging middleware uses
// this to tell a to-be-retried failure apart from a terminal one.
func RetryStateFromContext(ctx context.Context) *RetryState {
	if ctx == nil {
		return nil
	}
	if state, ok := ctx.Value(retryStateKey).(*RetryState); ok {
		return state
	}
	return nil
}

// RetryStateFromError returns the state embedded in a terminal retry
// error, or nil if err did not come from the retry path.
func RetryStateFromError(err error) *RetryState {
	if err == nil {
		return nil
	}
	var w *retryStateErrorWrapper
	if errors.As(err, &w) {
		return w.state
	}
	return nil
}

var defaultRetryConfig = RetryConfig{
	ShouldRetry: ShouldRetry(),
	Backoff:     ConstantBackoff(1*time.Second, 0.2),
	MaxAttempts: 3,
	Timeout:     1 * time.Minute,
}

func (c RetryConfig) parse() RetryConfig {
	if c.ShouldRetry == nil {
		c.ShouldRetry = defaultRetryConfig.ShouldRetry
	}
	if c.Backoff == nil {
		c.Backoff = defaultRetryConfig.Backoff
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultRetryConfig.MaxAttempts
	} else if c.MaxAttempts < 0 {
		c.MaxAttempts = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultRetryConfig.Timeout
	}
	return c
}

func newRetryState(timeout time.Duration, maxAttempts int) *RetryState {
	return &RetryState{
		Timeout:     timeout,
		MaxAttempts: maxAttempts,
		Start:       time.Now(),
		Attempts:    0,
	}
}

func (s *RetryState) appendCause(err error) {
	s.Duration = time.Since(s.Start)
	s.Causes = append(s.Causes, err)
}

func (s *RetryState) error(err error) error {
	s.Duration = time.Since(s.Start)
	s.Err = err
	return &retryStateErrorWrapper{state: s}
}

func (s *RetryState) context(ctx context.Context) context.Context {
	s.Attempts++
	return context.WithValue(ctx, retryStateKey, s)
}

type retryStateKeyType struct{}

var retryStateKey = retryStateKeyType{}

type retryStateErrorWrapper struct {
	state *RetryState
}

func (w *retryStateErrorWrapper) Error() string {
	if w.state == nil || len(w.state.Causes) == 0 {
		return ErrRetry.Error()
	}
	return fmt.Sprintf("%s: %s", w.state.Err, w.state.Causes[len(w.state.Causes)-1])
}

func (w *retryStateErrorWrapper) Unwrap() []error {
	return append([]error{w.state.Err}, w.state.Causes...)
}

func newApplyJitterFunc(jitter float64) func(d time.Duration) time.Duration {
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return func(d time.Duration) time.Duration {
		jitterFactor := 1.0 + (rand.Float64()*2*jitter - jitter)
		return time.Duration(float64(d) * jitterFactor)
	}
}

// Retry re-runs the wrapped transform on failure until it succeeds, the
// policy refuses the error, MaxAttempts is reached, or the overall
// Timeout expires. Each attempt runs with the RetryState attached to its
// context so inner middleware can see which attempt it is observing. The
// pipeline recipes put this around the Execute stage, where a subprocess
// that failed to spawn is worth a second try.
func Retry[In, Out any](cfg RetryConfig) Middleware[In, Out] {
	cfg = cfg.parse()
	return func(next ProcessFunc[In, Out]) ProcessFunc[In, Out] {
		return func(ctx context.Context, in In) ([]Out, error) {
			state := newRetryState(cfg.Timeout, cfg.MaxAttempts)

			for {
				out, err := next(state.context(ctx), in)
				if err == nil {
					return out, nil
				}
				state.appendCause(err)
				if !cfg.ShouldRetry(err) {
					return nil, state.error(ErrRetryNotRetryable)
				}

				if cfg.MaxAttempts > 0 && state.Attempts >= cfg.MaxAttempts {
					return nil, state.error(ErrRetryMaxAttempts)
				}

				var timeoutCh <-chan time.Time
				if cfg.Timeout > 0 {
					remaining := cfg.Timeout - time.Since(state.Start)
					if remaining <= 0 {
						return nil, state.error(ErrRetryTimeout)
					}
					timeoutCh = time.After(remaining)
				}

				select {
				case <-ctx.Done():
					return nil, state.error(ctx.Err())
				case <-timeoutCh:
					return nil, state.error(ErrRetryTimeout)
				case <-time.After(cfg.Backoff(state.Attempts)):
				}
			}
		}
	}
}
