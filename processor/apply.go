package processor

import (
	"context"
	"sync"

	"github.com/fxsml/fop/fop"
)

// Apply runs p over every fop pulled from in, starting one goroutine per
// item as soon as it arrives, and flattens each call's batch result back
// into a single stream. There is no cap on in-flight goroutines; callers
// that need one should use [ApplyBounded] instead. The returned channel is
// closed once in is closed and every in-flight call to ProcessOne has
// returned.
//
// A fop that already carries an error (per the err-monotonicity invariant)
// is passed through unprocessed: ProcessOne is never called on it.
func Apply(ctx context.Context, in <-chan fop.Fop, p Processor) <-chan fop.Fop {
	out := make(chan fop.Fop)
	var wg sync.WaitGroup

	go func() {
		defer close(out)
		// out must stay open until every spawned goroutine has returned;
		// a cancelled send only stops the pull loop, never skips the Wait.
		defer wg.Wait()
		for f := range in {
			if f.Err != nil {
				if !sendBatch(ctx, out, []fop.Fop{f}) {
					return
				}
				continue
			}

			wg.Add(1)
			go func(f fop.Fop) {
				defer wg.Done()
				sendBatch(ctx, out, processOne(ctx, p, f))
			}(f)
		}
	}()

	return out
}

// sendBatch sends each fop in batch to out, one at a time, returning false
// if ctx is cancelled before every element is sent.
func sendBatch(ctx context.Context, out chan<- fop.Fop, batch []fop.Fop) bool {
	for _, f := range batch {
		select {
		case out <- f:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// processOne invokes p.ProcessOne, turning a non-nil error into a fop
// carrying an attached ProcessorError instead of propagating the error up
// the call stack; the pipeline communicates failure entirely through the
// Fop.Err field, never through Go's error return at the stream level.
func processOne(ctx context.Context, p Processor, f fop.Fop) []fop.Fop {
	out, err := p.ProcessOne(ctx, f)
	if err != nil {
		if pe, ok := err.(*fop.ProcessorError); ok {
			return []fop.Fop{f.WithErr(pe)}
		}
		return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindIO, err.Error()))}
	}
	return out
}
