// Package pipeline chains processors into runnable stream transforms and
// ships the two pre-wired recipes: [Simple] (Parse → Glob → ReadContent)
// and [ExecReadExecBounded] (Parse → Bounded(Execute) → Glob →
// Bounded(Execute) → Bounded(ReadContent), one shared permit pool).
//
// A Builder accumulates stages; Build snapshots them into an immutable
// Pipeline whose Run turns an input channel of fops into an output stream
// plus a companion error channel carrying any fail-fast Guard's terminal
// error.
package pipeline

import (
	"context"
	"sync"

	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/guard"
	"github.com/fxsml/fop/processor"
	"github.com/fxsml/fop/stamper"
	"github.com/fxsml/fop/throttle"
)

type stageKind int

const (
	stagePlain stageKind = iota
	stageBounded
	stageGuard
)

type stage struct {
	kind stageKind
	p    processor.Processor

	// bounded stages
	pool     *throttle.Semaphore
	wait     stamper.Stamper
	waitName string

	// guard stage
	guard guard.Processor
}

// Builder accumulates pipeline stages. Methods return the receiver for
// chaining; Build snapshots the accumulated stages so later Builder
// mutation cannot affect an already-built Pipeline.
type Builder struct {
	stages  []stage
	mw      []processor.Middleware
	ordered bool
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Append adds an unbounded stage running p.
func (b *Builder) Append(p processor.Processor) *Builder {
	b.stages = append(b.stages, stage{kind: stagePlain, p: p})
	return b
}

// AppendBounded adds a stage running p gated by pool. Passing the same
// pool to several stages caps their combined in-flight invocations at the
// pool's capacity.
func (b *Builder) AppendBounded(p processor.Processor, pool *throttle.Semaphore) *Builder {
	return b.AppendBoundedWait(p, pool, nil, "")
}

// AppendBoundedWait is AppendBounded with queue-time instrumentation: when
// wait is non-nil, the time each fop spends waiting for a permit is
// recorded under Timestamp[waitName].
func (b *Builder) AppendBoundedWait(p processor.Processor, pool *throttle.Semaphore, wait stamper.Stamper, waitName string) *Builder {
	b.stages = append(b.stages, stage{kind: stageBounded, p: p, pool: pool, wait: wait, waitName: waitName})
	return b
}

// AppendGuard adds a Guard stage. In filter mode it drops errored fops;
// in fail-fast mode it terminates the stream and surfaces the first
// errored fop's error on Run's error channel.
func (b *Builder) AppendGuard(g guard.Processor) *Builder {
	b.stages = append(b.stages, stage{kind: stageGuard, guard: g})
	return b
}

// Use applies mw to every non-Guard stage, outermost first.
func (b *Builder) Use(mw ...processor.Middleware) *Builder {
	b.mw = append(b.mw, mw...)
	return b
}

// Ordered switches every stage to ordered emission: results leave each
// stage in input-arrival order, siblings of earlier inputs before those of
// later ones. Slower in-flight items hold up later completions.
func (b *Builder) Ordered() *Builder {
	b.ordered = true
	return b
}

// Build snapshots the Builder into a Pipeline. The Builder may keep being
// mutated afterwards without affecting the returned Pipeline.
func (b *Builder) Build() *Pipeline {
	stages := make([]stage, len(b.stages))
	copy(stages, b.stages)
	mw := make([]processor.Middleware, len(b.mw))
	copy(mw, b.mw)
	return &Pipeline{stages: stages, mw: mw, ordered: b.ordered}
}

// Pipeline is an immutable chain of stages. It is safe to Run the same
// Pipeline concurrently; stages hold no per-run state.
type Pipeline struct {
	stages  []stage
	mw      []processor.Middleware
	ordered bool
}

// Run wires the stages together over in and starts them. The returned fop
// channel closes when in closes and all in-flight work has drained, or
// when a fail-fast Guard terminates the stream; in the latter case the
// terminal error is delivered on the returned error channel before it
// closes. In every other case the error channel closes without sending.
func (p *Pipeline) Run(ctx context.Context, in <-chan fop.Fop) (<-chan fop.Fop, <-chan error) {
	cur := in
	var errChans []<-chan error

	for _, s := range p.stages {
		switch s.kind {
		case stageGuard:
			var errs <-chan error
			cur, errs = guard.Run(ctx, cur, s.guard)
			errChans = append(errChans, errs)
		case stageBounded:
			proc := processor.Wrap(s.p, p.mw...)
			if p.ordered {
				cur = processor.ApplyOrdered(ctx, cur, gated{p: proc, pool: s.pool, wait: s.wait, waitName: s.waitName})
			} else {
				cur = processor.ApplyBounded(ctx, cur, proc, s.pool, s.wait, s.waitName)
			}
		default:
			proc := processor.Wrap(s.p, p.mw...)
			if p.ordered {
				cur = processor.ApplyOrdered(ctx, cur, proc)
			} else {
				cur = processor.Apply(ctx, cur, proc)
			}
		}
	}

	return cur, mergeErrs(errChans)
}

// gated adapts a bounded stage to ordered emission: the permit is acquired
// inside ProcessOne so ApplyOrdered's slot bookkeeping stays in charge of
// output order while the pool still caps concurrent invocations.
type gated struct {
	p        processor.Processor
	pool     *throttle.Semaphore
	wait     stamper.Stamper
	waitName string
}

func (g gated) Name() string { return g.p.Name() }

func (g gated) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	wait := g.wait
	if wait == nil {
		wait = stamper.Trivial{}
	}
	tok := wait.Start(g.waitName, f)
	if err := g.pool.Acquire(ctx); err != nil {
		return nil, err
	}
	defer g.pool.Release()
	if g.wait != nil {
		f = f.Stamp(g.waitName, wait.End(tok))
	}
	return g.p.ProcessOne(ctx, f)
}

// mergeErrs fans the per-Guard error channels into one. Each source sends
// at most once, so the merged channel is buffered to capacity and never
// blocks a sender.
func mergeErrs(chans []<-chan error) <-chan error {
	out := make(chan error, len(chans))
	if len(chans) == 0 {
		close(out)
		return out
	}

	var wg sync.WaitGroup
	wg.Add(len(chans))
	for _, ch := range chans {
		go func(ch <-chan error) {
			defer wg.Done()
			for err := range ch {
				out <- err
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
