package middleware

import (
	"context"
	"time"
)

// Timeout bounds each call to the wrapped transform by d, derived from
// the caller's context so pipeline cancellation still wins. A zero or
// negative duration disables the bound and returns next unchanged, which
// lets callers pass a config value through without branching.
func Timeout[In, Out any](d time.Duration) Middleware[In, Out] {
	return func(next ProcessFunc[In, Out]) ProcessFunc[In, Out] {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, in In) ([]Out, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, in)
		}
	}
}
