package processor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxsml/fop/channel"
	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/stamper"
	"github.com/fxsml/fop/throttle"
)

func TestApplyBounded_RespectsCapacity(t *testing.T) {
	ctx := context.Background()
	pool := throttle.NewSemaphore(2)

	var inFlight int32
	var maxSeen int32

	slow := Func{ProcessorName: "Slow", Fn: func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			cur := atomic.LoadInt32(&maxSeen)
			if n <= cur || atomic.CompareAndSwapInt32(&maxSeen, cur, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return []fop.Fop{f}, nil
	}}

	items := make([]fop.Fop, 8)
	for i := range items {
		items[i] = fop.New("item")
	}
	in := channel.FromSlice(items)

	out := ApplyBounded(ctx, in, slow, pool, nil, "wait")
	results := channel.ToSlice(out)

	if len(results) != 8 {
		t.Fatalf("got %d results, want 8", len(results))
	}
	if atomic.LoadInt32(&maxSeen) > 2 {
		t.Fatalf("max concurrent = %d, want <= 2", maxSeen)
	}
}

func TestApplyBounded_SharedAcrossStages(t *testing.T) {
	ctx := context.Background()
	pool := throttle.NewSemaphore(1)

	noop := Func{ProcessorName: "Noop", Fn: func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
		return []fop.Fop{f}, nil
	}}

	in1 := channel.FromSlice([]fop.Fop{fop.New("a")})
	stage1 := ApplyBounded(ctx, in1, noop, pool, nil, "wait")
	stage2 := ApplyBounded(ctx, stage1, noop, pool, nil, "wait")

	results := channel.ToSlice(stage2)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestApplyBounded_StampsWaitTime(t *testing.T) {
	ctx := context.Background()
	pool := throttle.NewSemaphore(1)

	noop := Func{ProcessorName: "Noop", Fn: func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
		return []fop.Fop{f}, nil
	}}

	in := channel.FromSlice([]fop.Fop{fop.New("a")})
	out := ApplyBounded(ctx, in, noop, pool, stamper.HighRes{}, "wait")
	results := channel.ToSlice(out)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if _, ok := results[0].Timestamp["wait"]; !ok {
		t.Fatalf("expected a wait timestamp, got %+v", results[0].Timestamp)
	}
}
