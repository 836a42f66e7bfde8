package processor

import (
	"context"
	"sync"

	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/stamper"
	"github.com/fxsml/fop/throttle"
)

// ApplyBounded is [Apply] gated by a shared permit pool: at most pool's
// capacity calls to p.ProcessOne run concurrently at any moment, across
// every stage that shares the same *throttle.Semaphore. This is what lets
// a pipeline cap total concurrent subprocess spawns across, say, both a
// ReadContent and an Execute stage without giving each its own independent
// budget.
//
// When wait is non-nil, the time a fop spends queued for a permit is
// recorded as a TimestampRecord named waitName before ProcessOne runs.
func ApplyBounded(ctx context.Context, in <-chan fop.Fop, p Processor, pool *throttle.Semaphore, wait stamper.Stamper, waitName string) <-chan fop.Fop {
	out := make(chan fop.Fop)
	var wg sync.WaitGroup

	stamping := wait != nil
	if !stamping {
		wait = stamper.Trivial{}
	}

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

				tok := wait.Start(waitName, f)
				if err := pool.Acquire(ctx); err != nil {
					if stamping {
						f = f.Stamp(waitName, wait.End(tok))
					}
					sendBatch(ctx, out, []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindIO, err.Error()))})
					return
				}
				if stamping {
					f = f.Stamp(waitName, wait.End(tok))
				}
				defer pool.Release()

				sendBatch(ctx, out, processOne(ctx, p, f))
			}(f)
		}
	}()

	return out
}
