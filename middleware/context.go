package middleware

import (
	"context"
	"time"
)

// ContextConfig controls the context handed to the wrapped transform.
type ContextConfig struct {
	// Timeout bounds each call. Zero applies no bound.
	Timeout time.Duration

	// Background detaches each call from the pipeline's context, so
	// cancelling the pipeline does not interrupt in-flight work.
	Background bool

	// ReturnWhenDone skips the call entirely when the context is already
	// cancelled, returning ctx.Err(). A cancelled pipeline then drains its
	// remaining input without doing any more filesystem or subprocess
	// work.
	ReturnWhenDone bool
}

// Context manages the context for each call to the wrapped transform:
// early return on a cancelled pipeline, optional detachment from the
// pipeline's lifetime, and an optional per-call bound.
func Context[In, Out any](cfg ContextConfig) Middleware[In, Out] {
	return func(next ProcessFunc[In, Out]) ProcessFunc[In, Out] {
		return func(ctx context.Context, in In) ([]Out, error) {
			if cfg.ReturnWhenDone && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if cfg.Background {
				ctx = context.Background()
			}
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}
			return next(ctx, in)
		}
	}
}
