// Package guard implements the Guard stage: filtering out fops that
// already carry an error, or, in fail-fast mode, terminating the whole
// stream on the first one.
package guard

import (
	"context"

	"github.com/fxsml/fop/fop"
)

// FailFastError is returned by [Run] when a FailFast-mode Guard encounters
// an errored fop; it wraps the fop's attached ProcessorError as the
// pipeline's terminal error.
type FailFastError struct {
	Fop *fop.ProcessorError
}

func (e *FailFastError) Error() string { return "guard: fail-fast: " + e.Fop.Error() }
func (e *FailFastError) Unwrap() error { return e.Fop }

// Processor filters errored fops in Filter mode (the default). FailFast
// mode is handled by [Run], not ProcessOne, because Go streams surface
// termination through a channel close plus a companion error, not through
// an in-band value.
type Processor struct {
	// FailFast, when true, makes Run stop the stream and report the first
	// errored fop's error instead of dropping it.
	FailFast bool
}

func (p Processor) Name() string { return "Guard" }

// ProcessOne implements Filter-mode semantics only: an errored fop yields
// an empty batch, dropping it; anything else passes through unchanged.
// FailFast mode requires stream-level control and is implemented by [Run].
func (p Processor) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	if f.Err != nil {
		return nil, nil
	}
	return []fop.Fop{f}, nil
}

// Run applies Guard to in, returning the filtered/guarded stream and a
// companion error channel. In Filter mode the error channel is closed
// without ever sending. In FailFast mode, the first errored fop observed
// closes the output stream and sends a *FailFastError on the error
// channel before closing it.
func Run(ctx context.Context, in <-chan fop.Fop, p Processor) (<-chan fop.Fop, <-chan error) {
	out := make(chan fop.Fop)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		for f := range in {
			if f.Err == nil {
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}
				continue
			}

			if !p.FailFast {
				continue
			}

			errs <- &FailFastError{Fop: f.Err}
			// Drain the rest of the input so upstream stages blocked on a
			// send can finish; nothing more is emitted downstream.
			for range in {
			}
			return
		}
	}()

	return out, errs
}
