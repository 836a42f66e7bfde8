// Package processor defines the Processor contract — a per-item,
// asynchronous 1→N transform over [fop.Fop] — and the stream combinators
// ([Apply], [ApplyBounded], [ApplyOrdered]) that lift it into a whole-
// pipeline transform over a channel of fops.
//
// The combinators are purpose-built rather than layered on
// github.com/fxsml/fop/channel or a fixed-size worker pool: Apply needs
// one goroutine started per pulled item (not a bounded pool) to satisfy
// the "eager, unbounded" semantics the built-in recipes rely on, and
// ApplyBounded needs a permit pool (github.com/fxsml/fop/throttle.Semaphore)
// that can be shared across multiple stages in one pipeline. Both still
// follow the cancellation idiom of a Go worker loop selecting on
// ctx.Done() alongside channel sends.
package processor

import (
	"context"

	"github.com/fxsml/fop/fop"
)

// Processor is a 1→N asynchronous transform on fops.
//
// ProcessOne must return a finite batch, produced in one call rather than
// lazily: fan-out cardinality is small in practice (glob matches), and
// batching simplifies backpressure accounting for the bounded combinator.
// An empty batch means the input fop was filtered out; a batch of one is
// the common 1:1 case; a batch of more than one is fan-out (Glob only).
//
// Implementations must be safe for concurrent invocation and must not
// retain the input fop or any returned fop after ProcessOne returns.
type Processor interface {
	Name() string
	ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error)
}

// Func adapts a plain function to the Processor interface, for ad-hoc
// stages and tests.
type Func struct {
	ProcessorName string
	Fn            func(ctx context.Context, f fop.Fop) ([]fop.Fop, error)
}

func (p Func) Name() string { return p.ProcessorName }

func (p Func) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	return p.Fn(ctx, f)
}
