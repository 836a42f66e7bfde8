package processor

import (
	"context"

	"github.com/fxsml/fop/fop"
)

// ApplyOrdered runs p over every fop pulled from in exactly like [Apply] —
// concurrently, one goroutine per item — but emits results in the same
// order the inputs arrived. A slow early item holds up already-finished
// later items; callers that need to print results alongside their input
// list accept that cost for deterministic order.
//
// It works by handing each input its own single-slot result channel in
// arrival order, then reading those result channels out in the same order:
// the second stage blocks on slot i until slot i's goroutine has sent, but
// every slot's goroutine starts running the moment its input arrives.
func ApplyOrdered(ctx context.Context, in <-chan fop.Fop, p Processor) <-chan fop.Fop {
	slots := make(chan chan []fop.Fop)

	go func() {
		defer close(slots)
		for f := range in {
			slot := make(chan []fop.Fop, 1)
			select {
			case slots <- slot:
			case <-ctx.Done():
				return
			}

			go func(f fop.Fop, slot chan []fop.Fop) {
				if f.Err != nil {
					slot <- []fop.Fop{f}
					return
				}
				slot <- processOne(ctx, p, f)
			}(f, slot)
		}
	}()

	out := make(chan fop.Fop)
	go func() {
		defer close(out)
		for slot := range slots {
			select {
			case batch := <-slot:
				if !sendBatch(ctx, out, batch) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
