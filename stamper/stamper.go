// Package stamper defines the start/end timing protocol used to attach
// measurements to a [fop.Fop]: Start returns an opaque token recording the
// starting instant, End turns it into a named measurement. Unlike a
// wrapping middleware, the two-call shape lets a processor bracket just
// the part of its work worth measuring.
package stamper

import (
	"time"

	"github.com/fxsml/fop/fop"
)

// Token is the opaque handle returned by Start and consumed by End. It is
// a plain struct so implementations can avoid a heap allocation per call.
type Token struct {
	name      string
	startedAt time.Time
}

// Stamper measures the duration of an operation bracketing a fop through a
// processor. Start is called before the operation; End is called after.
type Stamper interface {
	Start(processorName string, f fop.Fop) Token
	End(t Token) fop.TimestampRecord
}

// StartNamer produces the name recorded on a measurement's start token.
type StartNamer func(processorName string, f fop.Fop) string

// DefaultStartNamer names a measurement "<processorName>:<fileOrPattern>".
func DefaultStartNamer(processorName string, f fop.Fop) string {
	return processorName + ":" + f.FileOrPattern
}

// HighRes is a [Stamper] backed by the runtime's monotonic clock, embedded
// in every time.Time since Go 1.9.
type HighRes struct {
	// Namer produces the recorded name for a Start call. Defaults to
	// [DefaultStartNamer].
	Namer StartNamer
}

func (h HighRes) namer() StartNamer {
	if h.Namer != nil {
		return h.Namer
	}
	return DefaultStartNamer
}

func (h HighRes) Start(processorName string, f fop.Fop) Token {
	return Token{name: h.namer()(processorName, f), startedAt: time.Now()}
}

func (h HighRes) End(t Token) fop.TimestampRecord {
	now := time.Now()
	return fop.TimestampRecord{
		Name:       t.name,
		StartedAt:  t.startedAt.UnixNano(),
		DurationMs: now.Sub(t.startedAt).Milliseconds(),
	}
}

// Trivial is a no-op [Stamper] that always returns a zero-value
// measurement. Useful in tests that need a Stamper but don't care about
// timing.
type Trivial struct{}

func (Trivial) Start(string, fop.Fop) Token   { return Token{} }
func (Trivial) End(Token) fop.TimestampRecord { return fop.TimestampRecord{} }
