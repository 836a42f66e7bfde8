package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fxsml/fop/config"
	"github.com/fxsml/fop/execute"
	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/guard"
	"github.com/fxsml/fop/logging"
	"github.com/fxsml/fop/middleware"
	"github.com/fxsml/fop/pipeline"
	"github.com/fxsml/fop/stamper"
	"github.com/fxsml/fop/throttle"
)

// options collects everything the pipeline builders need from the command
// line. Defaults may be overridden through FOP_CLI_* environment variables
// before the flags are registered, so flags win over env vars which win
// over the built-in defaults.
type options struct {
	Text            bool
	RecordEncoding  bool
	Exec            bool
	Bound           int64
	GlobConcurrency int
	Ordered         bool
	Guard           bool
	FailFast        bool
	PrintContent    bool
	StageTimeout    time.Duration
	Retries         int
	SpawnRate       float64
}

func newRootCmd() *cobra.Command {
	opts := options{Bound: pipeline.DefaultCapacity}
	envErr := config.Load("cli", &opts)

	var verbosity int

	cmd := &cobra.Command{
		Use:   "fop [flags] <file-or-pattern>...",
		Short: "Resolve each argument as a concrete file or a glob pattern",
		Long: `fop treats each positional argument as a concrete file if one exists,
and otherwise as a glob pattern expanding to zero or more files. Matches
are read (or, with --exec, executed) concurrently and printed as they
complete.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(verbosity)
			if envErr != nil {
				log.Warn().Err(envErr).Msg("ignoring invalid FOP_CLI_* environment value")
			}
			log.Debug().Strs("args", args).Msg("command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	cmd.Flags().BoolVar(&opts.Text, "text", opts.Text, "Decode file contents as UTF-8 text, falling back to bytes")
	cmd.Flags().BoolVar(&opts.RecordEncoding, "record-encoding", opts.RecordEncoding, "Record the detected encoding on each result")
	cmd.Flags().BoolVar(&opts.Exec, "exec", opts.Exec, "Run executable matches and capture their stdout instead of reading them")
	cmd.Flags().Int64Var(&opts.Bound, "bound", opts.Bound, "Permit-pool capacity shared by the bounded stages (with --exec)")
	cmd.Flags().IntVar(&opts.GlobConcurrency, "scan-concurrency", opts.GlobConcurrency, "Cap on simultaneous directory scans (0 = default)")
	cmd.Flags().BoolVar(&opts.Ordered, "ordered", opts.Ordered, "Emit results in argument order instead of completion order")
	cmd.Flags().BoolVar(&opts.Guard, "guard", opts.Guard, "Drop results that carry an error instead of printing them")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", opts.FailFast, "Abort on the first result that carries an error")
	cmd.Flags().BoolVar(&opts.PrintContent, "content", opts.PrintContent, "Print each result's content, not just its path")
	cmd.Flags().DurationVar(&opts.StageTimeout, "timeout", opts.StageTimeout, "Per-stage timeout for each file or subprocess (0 = none)")
	cmd.Flags().IntVar(&opts.Retries, "retries", opts.Retries, "Attempts for a subprocess that fails to spawn (with --exec, 0 = no retry)")
	cmd.Flags().Float64Var(&opts.SpawnRate, "spawn-rate", opts.SpawnRate, "Cap on subprocess spawns per second (with --exec, 0 = unlimited)")

	return cmd
}

func run(cmd *cobra.Command, opts options, args []string) error {
	var g *guard.Processor
	if opts.Guard || opts.FailFast {
		g = &guard.Processor{FailFast: opts.FailFast}
	}

	var p *pipeline.Pipeline
	if opts.Exec {
		exe := execute.Processor{}
		if opts.SpawnRate > 0 {
			exe.Limiter = throttle.NewLeakyBucketAllower(opts.SpawnRate, max(opts.Bound, 1))
		}
		var retry *middleware.RetryConfig
		if opts.Retries > 0 {
			retry = &middleware.RetryConfig{MaxAttempts: opts.Retries}
		}
		p = pipeline.ExecReadExecBounded(pipeline.BoundedConfig{
			Capacity:        opts.Bound,
			GlobConcurrency: opts.GlobConcurrency,
			Execute:         exe,
			Retry:           retry,
			AsText:          opts.Text,
			RecordEncoding:  opts.RecordEncoding,
			WaitStamper:     stamper.HighRes{},
			Guard:           g,
			Ordered:         opts.Ordered,
			StageTimeout:    opts.StageTimeout,
		})
	} else {
		p = pipeline.Simple(pipeline.SimpleConfig{
			GlobConcurrency: opts.GlobConcurrency,
			AsText:          opts.Text,
			RecordEncoding:  opts.RecordEncoding,
			Guard:           g,
			Ordered:         opts.Ordered,
			StageTimeout:    opts.StageTimeout,
		})
	}

	out, errs := p.Run(cmd.Context(), pipeline.FromArgs(args))
	return pipeline.ForEach(out, errs, func(f fop.Fop) {
		printFop(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts, f)
	})
}

func printFop(stdout, stderr io.Writer, opts options, f fop.Fop) {
	if f.Err != nil {
		fmt.Fprintf(stderr, "fop: %s: %s\n", f.FileOrPattern, f.Err)
		return
	}

	name := f.FileOrPattern
	if f.Filename != nil {
		name = *f.Filename
	}

	if !opts.PrintContent {
		fmt.Fprintln(stdout, name)
		return
	}

	fmt.Fprintf(stdout, "== %s\n", name)
	if f.Content == nil {
		return
	}
	if f.Content.IsText {
		fmt.Fprint(stdout, f.Content.Text)
	} else {
		stdout.Write(f.Content.Bytes)
	}
}
