package pipeline

import (
	"time"

	"github.com/fxsml/fop/execute"
	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/glob"
	"github.com/fxsml/fop/guard"
	"github.com/fxsml/fop/middleware"
	"github.com/fxsml/fop/parse"
	"github.com/fxsml/fop/processor"
	"github.com/fxsml/fop/readcontent"
	"github.com/fxsml/fop/stamper"
	"github.com/fxsml/fop/throttle"
)

// DefaultCapacity is the shared permit-pool size [ExecReadExecBounded]
// uses when the config leaves Capacity unset.
const DefaultCapacity = 4

// SimpleConfig configures the [Simple] recipe.
type SimpleConfig struct {
	// ParseGuard rejects fops with an empty FileOrPattern. Default: off.
	ParseGuard bool

	// GlobConcurrency caps simultaneous directory scans. Zero means
	// glob.DefaultConcurrency.
	GlobConcurrency int

	// AsText and RecordEncoding configure the ReadContent stage.
	AsText         bool
	RecordEncoding bool

	// Guard, when non-nil, appends a Guard stage after ReadContent.
	Guard *guard.Processor

	// Ordered switches the pipeline to ordered emission. Default: off
	// (unordered, higher throughput).
	Ordered bool

	// StageTimeout bounds each ProcessOne call. Zero disables it.
	StageTimeout time.Duration

	// Metrics, when non-nil, receives a measurement for every ProcessOne
	// call on every stage.
	Metrics middleware.MetricsCollector

	// Log configures the per-stage outcome logging middleware.
	Log middleware.LogConfig
}

// Simple builds the canonical file-or-pattern pipeline:
// Parse → Glob → ReadContent, unbounded and (by default) unordered.
func Simple(cfg SimpleConfig) *Pipeline {
	b := New().
		Append(instrument(parse.Processor{Guard: cfg.ParseGuard}, cfg.Log, cfg.StageTimeout, cfg.Metrics, nil)).
		Append(instrument(glob.NewProcessor(cfg.GlobConcurrency), cfg.Log, cfg.StageTimeout, cfg.Metrics, nil)).
		Append(instrument(readcontent.Processor{AsText: cfg.AsText, RecordEncoding: cfg.RecordEncoding}, cfg.Log, cfg.StageTimeout, cfg.Metrics, nil))
	if cfg.Guard != nil {
		b.AppendGuard(*cfg.Guard)
	}
	if cfg.Ordered {
		b.Ordered()
	}
	return b.Build()
}

// BoundedConfig configures the [ExecReadExecBounded] recipe.
type BoundedConfig struct {
	// Capacity sizes the permit pool shared by the three bounded stages.
	// Zero means DefaultCapacity.
	Capacity int64

	// ParseGuard rejects fops with an empty FileOrPattern. Default: off.
	ParseGuard bool

	// GlobConcurrency caps simultaneous directory scans. Zero means
	// glob.DefaultConcurrency.
	GlobConcurrency int

	// Execute configures both Execute stages (the pre-glob one that runs
	// a concrete script argument, and the post-glob one that runs each
	// expanded match).
	Execute execute.Processor

	// Retry, when non-nil, re-runs an Execute call whose subprocess could
	// not be spawned. Exit-status failures are attached to the fop and are
	// never retried.
	Retry *middleware.RetryConfig

	// AsText and RecordEncoding configure the ReadContent stage.
	AsText         bool
	RecordEncoding bool

	// WaitStamper, when non-nil, records each fop's permit-queue time
	// under Timestamp[WaitName] on every bounded stage.
	WaitStamper stamper.Stamper
	// WaitName keys the queue-time measurement. Defaults to "wait".
	WaitName string

	// Guard, when non-nil, appends a Guard stage after the final
	// ReadContent.
	Guard *guard.Processor

	// Ordered switches the pipeline to ordered emission. Default: off.
	Ordered bool

	// StageTimeout bounds each ProcessOne call. Zero disables it.
	StageTimeout time.Duration

	// Metrics, when non-nil, receives a measurement for every ProcessOne
	// call on every stage.
	Metrics middleware.MetricsCollector

	// Log configures the per-stage outcome logging middleware.
	Log middleware.LogConfig
}

// ExecReadExecBounded builds the script-running pipeline:
// Parse → Bounded(Execute) → Glob → Bounded(Execute) → Bounded(ReadContent),
// with one permit pool shared by all three bounded stages, so the combined
// in-flight execute and read calls never exceed Capacity. Intended for
// arguments that may themselves name user-controlled executables and must
// not flood the system.
func ExecReadExecBounded(cfg BoundedConfig) *Pipeline {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	waitName := cfg.WaitName
	if waitName == "" {
		waitName = "wait"
	}
	pool := throttle.NewSemaphore(capacity)

	execStage := func() processor.Processor {
		return instrument(cfg.Execute, cfg.Log, cfg.StageTimeout, cfg.Metrics, cfg.Retry)
	}

	b := New().
		Append(instrument(parse.Processor{Guard: cfg.ParseGuard}, cfg.Log, cfg.StageTimeout, cfg.Metrics, nil)).
		AppendBoundedWait(execStage(), pool, cfg.WaitStamper, waitName).
		Append(instrument(glob.NewProcessor(cfg.GlobConcurrency), cfg.Log, cfg.StageTimeout, cfg.Metrics, nil)).
		AppendBoundedWait(execStage(), pool, cfg.WaitStamper, waitName).
		AppendBoundedWait(instrument(readcontent.Processor{AsText: cfg.AsText, RecordEncoding: cfg.RecordEncoding}, cfg.Log, cfg.StageTimeout, cfg.Metrics, nil), pool, cfg.WaitStamper, waitName)
	if cfg.Guard != nil {
		b.AppendGuard(*cfg.Guard)
	}
	if cfg.Ordered {
		b.Ordered()
	}
	return b.Build()
}

// instrument assembles the ambient middleware around a stage: panic
// recovery outermost, early return once the pipeline is cancelled, fop
// identity metadata for the log and metrics layers, optional retry
// (Execute stages), optional metrics collection, outcome logging, and the
// per-call timeout innermost. Logging sits inside the retry loop so every
// attempt is logged and a retried failure is logged as a retry, not a
// terminal failure.
func instrument(p processor.Processor, log middleware.LogConfig, timeout time.Duration, metrics middleware.MetricsCollector, retry *middleware.RetryConfig) processor.Processor {
	mw := []processor.Middleware{
		middleware.Recover[fop.Fop, fop.Fop](),
		middleware.Context[fop.Fop, fop.Fop](middleware.ContextConfig{ReturnWhenDone: true}),
		middleware.MetadataProvider[fop.Fop, fop.Fop](fopMetadata),
	}
	if retry != nil {
		mw = append(mw, middleware.Retry[fop.Fop, fop.Fop](*retry))
	}
	if metrics != nil {
		mw = append(mw, middleware.MetricsMiddleware[fop.Fop, fop.Fop](metrics))
	}
	mw = append(mw,
		middleware.Log[fop.Fop, fop.Fop](log),
		middleware.Timeout[fop.Fop, fop.Fop](timeout),
	)
	return processor.Wrap(p, mw...)
}

// fopMetadata tags every log line and metric with the fop's identity.
func fopMetadata(f fop.Fop) middleware.Metadata {
	return middleware.Metadata{"file_or_pattern": f.FileOrPattern}
}
