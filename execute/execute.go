// Package execute implements the Execute stage: probing a fop's target
// path for executability and, if executable, running it as a subprocess
// and capturing its output.
//
// The target path is Filename when set, falling back to FileOrPattern.
// Executability is probed via mode bits on Unix and via extension
// sniffing on Windows (isExecutable).
package execute

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/stamper"
	"github.com/fxsml/fop/throttle"
)

// windowsExecutableExtensions drives extension sniffing in place of
// mode-bit inspection, since Windows file permissions don't carry a
// meaningful executable bit.
var windowsExecutableExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".ps1": true,
}

// FailChecker inspects a finished subprocess and decides whether it
// counts as a failure. The default (nil) accepts any zero exit status and
// rejects everything else.
type FailChecker func(state *os.ProcessState, stderr []byte) error

// Processor probes a fop's target path for executability, and if
// executable, runs it and captures its output.
type Processor struct {
	// ExpectExecution, when true, attaches a NotExecutable error to fops
	// whose target is not runnable. When false (the default), such fops
	// pass through unchanged.
	ExpectExecution bool

	// FailChecker overrides the default exit-status-only success rule.
	FailChecker FailChecker

	// ExecutionStamper, if set, brackets the subprocess run and records
	// the measurement under Timestamp[ExecutionName].
	ExecutionStamper stamper.Stamper
	ExecutionName    string

	// Limiter, if set, throttles subprocess spawns (e.g. to cap spawn
	// rate independently of the bounded-apply concurrency cap).
	Limiter throttle.Allower
}

func (p Processor) Name() string { return "Execute" }

func (p Processor) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	path := f.FileOrPattern
	if f.Filename != nil {
		path = *f.Filename
	}

	if !isExecutable(path) {
		if p.ExpectExecution {
			return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindNotExecutable, "not executable: "+path))}, nil
		}
		return []fop.Fop{f}, nil
	}

	if p.Limiter != nil {
		if err := p.Limiter.Allow(ctx, 1); err != nil {
			return nil, fop.NewError(p.Name(), fop.KindSpawnError, err.Error())
		}
	}

	var tok stamper.Token
	stamping := p.ExecutionStamper != nil
	if stamping {
		tok = p.ExecutionStamper.Start(p.Name(), f)
	}

	cmd := exec.CommandContext(ctx, path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if stamping {
		rec := p.ExecutionStamper.End(tok)
		f = f.Stamp(p.ExecutionName, rec)
	}

	truth := true
	f.Executable = &truth

	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			// Spawn failures surface as returned errors, not attached ones:
			// a retry middleware can re-run the call, and the combinator
			// attaches whatever survives the retries.
			return nil, fop.NewError(p.Name(), fop.KindSpawnError, runErr.Error())
		}
	}

	if err := p.checkFailure(cmd.ProcessState, stderr.Bytes()); err != nil {
		return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindExecFailed, err.Error()))}, nil
	}

	f.Content = fop.TextContent(stdout.String())
	return []fop.Fop{f}, nil
}

func (p Processor) checkFailure(state *os.ProcessState, stderr []byte) error {
	if p.FailChecker != nil {
		return p.FailChecker(state, stderr)
	}
	if state == nil || !state.Success() {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = "exit status " + stateStatusString(state)
		}
		return &exitFailure{message: msg}
	}
	return nil
}

type exitFailure struct{ message string }

func (e *exitFailure) Error() string { return e.message }

func stateStatusString(state *os.ProcessState) string {
	if state == nil {
		return "unknown"
	}
	return state.String()
}

// isExecutable reports whether path names a regular, runnable file. On
// Unix it checks the mode bits; on Windows, since file permissions carry
// no executable concept, it sniffs the extension instead.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	switch runtime.GOOS {
	case "windows":
		for ext := range windowsExecutableExtensions {
			if strings.HasSuffix(strings.ToLower(path), ext) {
				return true
			}
		}
		return false
	default:
		return info.Mode()&0o111 != 0
	}
}
