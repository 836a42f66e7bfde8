package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/guard"
	"github.com/fxsml/fop/middleware"
	"github.com/fxsml/fop/processor"
	"github.com/fxsml/fop/throttle"
)

func tagging(name string) processor.Processor {
	return processor.Func{
		ProcessorName: name,
		Fn: func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
			return []fop.Fop{f.WithFilename(name)}, nil
		},
	}
}

func TestFromArgs_PreservesOrder(t *testing.T) {
	in := FromArgs([]string{"a", "b", "c"})

	var got []string
	for f := range in {
		got = append(got, f.FileOrPattern)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("got %v", got)
	}
}

func TestRun_ChainsStagesInOrder(t *testing.T) {
	p := New().Append(tagging("first")).Append(tagging("second")).Build()

	out, errs := p.Run(context.Background(), FromArgs([]string{"x"}))
	results, err := Collect(out, errs)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || *results[0].Filename != "second" {
		t.Fatalf("got %+v", results)
	}
}

func TestBuilder_BuildSnapshotsStages(t *testing.T) {
	b := New().Append(tagging("only"))
	built := b.Build()
	b.Append(tagging("late"))

	out, errs := built.Run(context.Background(), FromArgs([]string{"x"}))
	results, err := Collect(out, errs)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || *results[0].Filename != "only" {
		t.Fatalf("later Builder mutation leaked into the built pipeline: %+v", results)
	}
}

func TestRun_GuardFilterDropsErroredFops(t *testing.T) {
	failing := processor.Func{
		ProcessorName: "Fail",
		Fn: func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
			return nil, fop.NewError("Fail", fop.KindIO, "boom")
		},
	}

	p := New().Append(failing).AppendGuard(guard.Processor{}).Build()
	out, errs := p.Run(context.Background(), FromArgs([]string{"x", "y"}))
	results, err := Collect(out, errs)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected the guard to drop every errored fop, got %+v", results)
	}
}

func TestRun_GuardFailFastSurfacesTerminalError(t *testing.T) {
	failing := processor.Func{
		ProcessorName: "Fail",
		Fn: func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
			return nil, fop.NewError("Fail", fop.KindIO, "boom")
		},
	}

	p := New().Append(failing).AppendGuard(guard.Processor{FailFast: true}).Build()
	out, errs := p.Run(context.Background(), FromArgs([]string{"x"}))
	_, err := Collect(out, errs)

	var ff *guard.FailFastError
	if !errors.As(err, &ff) {
		t.Fatalf("expected a FailFastError, got %v", err)
	}
	if ff.Fop.Processor != "Fail" {
		t.Fatalf("terminal error should carry the failing processor's name, got %+v", ff.Fop)
	}
}

func TestRun_OrderedPreservesInputOrder(t *testing.T) {
	// The first input is the slowest; unordered emission would let later
	// inputs overtake it.
	delays := map[string]time.Duration{"a": 50 * time.Millisecond, "b": 10 * time.Millisecond, "c": 0}
	slow := processor.Func{
		ProcessorName: "Slow",
		Fn: func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
			time.Sleep(delays[f.FileOrPattern])
			return []fop.Fop{f}, nil
		},
	}

	p := New().Append(slow).Ordered().Build()
	out, errs := p.Run(context.Background(), FromArgs([]string{"a", "b", "c"}))
	results, err := Collect(out, errs)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if results[i].FileOrPattern != want {
			t.Fatalf("position %d = %q, want %q", i, results[i].FileOrPattern, want)
		}
	}
}

func TestRun_SharedPoolCapsInFlightAcrossStages(t *testing.T) {
	var inFlight, peak int64
	track := func(next middleware.ProcessFunc[fop.Fop, fop.Fop]) middleware.ProcessFunc[fop.Fop, fop.Fop] {
		return func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
			cur := atomic.AddInt64(&inFlight, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if cur <= p || atomic.CompareAndSwapInt64(&peak, p, cur) {
					break
				}
			}
			defer atomic.AddInt64(&inFlight, -1)
			time.Sleep(10 * time.Millisecond)
			return next(ctx, f)
		}
	}

	stageA := processor.Wrap(tagging("a"), track)
	stageB := processor.Wrap(tagging("b"), track)

	pool := throttle.NewSemaphore(2)
	p := New().AppendBounded(stageA, pool).AppendBounded(stageB, pool).Build()

	out, errs := p.Run(context.Background(), FromArgs([]string{"1", "2", "3", "4", "5", "6"}))
	if _, err := Collect(out, errs); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&peak); got > 2 {
		t.Fatalf("peak in-flight across shared-pool stages = %d, want <= 2", got)
	}
}

func TestBuilder_UseWrapsEveryStage(t *testing.T) {
	var calls int64
	counting := func(next middleware.ProcessFunc[fop.Fop, fop.Fop]) middleware.ProcessFunc[fop.Fop, fop.Fop] {
		return func(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
			atomic.AddInt64(&calls, 1)
			return next(ctx, f)
		}
	}

	p := New().Append(tagging("a")).Append(tagging("b")).Use(counting).Build()
	out, errs := p.Run(context.Background(), FromArgs([]string{"x", "y"}))
	if _, err := Collect(out, errs); err != nil {
		t.Fatal(err)
	}

	// two stages times two inputs
	if got := atomic.LoadInt64(&calls); got != 4 {
		t.Fatalf("middleware ran %d times, want 4", got)
	}
}

func TestForEach_VisitsEveryFopAndReportsNoError(t *testing.T) {
	p := New().Append(tagging("t")).Build()
	out, errs := p.Run(context.Background(), FromArgs([]string{"a", "b"}))

	var seen int
	if err := ForEach(out, errs, func(fop.Fop) { seen++ }); err != nil {
		t.Fatal(err)
	}
	if seen != 2 {
		t.Fatalf("visited %d fops, want 2", seen)
	}
}
