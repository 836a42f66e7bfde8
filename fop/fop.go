// Package fop defines the Fop record: the envelope that carries a single
// file-or-pattern argument through the processing pipeline, accumulating
// filename resolution, pattern expansion, content, execution output, and
// timing data as it passes from one processor to the next.
package fop

import "github.com/google/uuid"

// Fop is a flyweight record accumulated stage by stage as it moves through
// a pipeline. FileOrPattern is set once at construction and never mutated;
// all other fields are owned by the processor that set them, except Match,
// which is shared by pointer across every sibling produced by one glob
// fan-out.
type Fop struct {
	// FileOrPattern is the original user-supplied string. Identity; never
	// mutated after creation.
	FileOrPattern string

	// Filename is the concrete existing path resolved by CheckExist or Glob.
	Filename *string

	// Executable reports whether Filename names a runnable file, set by
	// the Execute processor.
	Executable *bool

	// Match identifies the pattern a fop was produced from. Siblings from
	// one glob fan-out share the same pointer; it is never mutated after
	// publication.
	Match *Match

	// Content is the payload read from disk or captured from a subprocess.
	Content *Content

	// Encoding records how a text-mode ReadContent stored Content: "utf8"
	// when it decoded as text, "binary" when it fell back to raw bytes.
	// Unset when the encoding was not recorded.
	Encoding *string

	// Timestamp holds named timing measurements keyed by, e.g., the
	// execution name passed to the Execute processor.
	Timestamp map[string]TimestampRecord

	// Err is the first failure attached to this fop. At most one processor
	// may set it; once set, no downstream processor may overwrite it.
	Err *ProcessorError
}

// New creates a Fop for the given user-supplied string.
func New(fileOrPattern string) Fop {
	return Fop{FileOrPattern: fileOrPattern}
}

// Clone returns a fan-out-safe shallow copy: FileOrPattern and Err are
// copied, Match is shared by pointer, and Filename, Executable, Content,
// Encoding and Timestamp are left unset since a freshly cloned sibling has
// not yet been resolved, read, executed, or stamped.
func (f Fop) Clone() Fop {
	return Fop{
		FileOrPattern: f.FileOrPattern,
		Filename:      nil,
		Executable:    nil,
		Match:         f.Match,
		Content:       nil,
		Encoding:      nil,
		Timestamp:     nil,
		Err:           f.Err,
	}
}

// WithFilename returns a copy of f with Filename set.
func (f Fop) WithFilename(name string) Fop {
	f.Filename = &name
	return f
}

// WithErr returns a copy of f with Err set. Callers should only call this
// on a fop whose Err is still nil; per the err-monotonicity invariant, a
// fop that already carries an error is never rewritten.
func (f Fop) WithErr(err *ProcessorError) Fop {
	f.Err = err
	return f
}

// Stamp records a named timing measurement on a copy of f.
func (f Fop) Stamp(name string, rec TimestampRecord) Fop {
	out := make(map[string]TimestampRecord, len(f.Timestamp)+1)
	for k, v := range f.Timestamp {
		out[k] = v
	}
	out[name] = rec
	f.Timestamp = out
	return f
}

// Content is the discriminated payload read by ReadContent or captured by
// Execute: either raw bytes or decoded text, never both.
type Content struct {
	Bytes  []byte
	Text   string
	IsText bool
}

// BytesContent wraps raw bytes as a Content value.
func BytesContent(b []byte) *Content {
	return &Content{Bytes: b}
}

// TextContent wraps decoded text as a Content value.
func TextContent(s string) *Content {
	return &Content{Text: s, IsText: true}
}

// Match is a shared-immutable handle identifying the pattern a fop's
// filename was matched from. All siblings produced by expanding one
// pattern point at the same Match value; it is never mutated after
// creation.
type Match struct {
	// ID distinguishes one expansion from another across process
	// boundaries, where pointer identity is meaningless (e.g. log
	// correlation across a distributed consumer).
	ID string

	// Pattern is the original glob pattern that produced this match.
	Pattern string
}

// NewMatch creates a Match handle for the given pattern, assigning it a
// fresh correlation ID.
func NewMatch(pattern string) *Match {
	return &Match{ID: uuid.NewString(), Pattern: pattern}
}

// TimestampRecord is a single timing measurement attached by a [stamper].
//
// [stamper]: https://pkg.go.dev/github.com/fxsml/fop/stamper
type TimestampRecord struct {
	Name       string
	StartedAt  int64 // unix nanoseconds
	DurationMs int64
}

// ErrorKind classifies a ProcessorError for errors.Is-free dispatch.
type ErrorKind string

const (
	KindConfig        ErrorKind = "Config"
	KindNotFound      ErrorKind = "NotFound"
	KindBadPattern    ErrorKind = "BadPattern"
	KindScanError     ErrorKind = "ScanError"
	KindIO            ErrorKind = "Io"
	KindNotExecutable ErrorKind = "NotExecutable"
	KindExecFailed    ErrorKind = "ExecFailed"
	KindSpawnError    ErrorKind = "SpawnError"
)

// ProcessorError is the first failure attached to a fop. Processor names
// the stage that produced it; Kind classifies it per the taxonomy above.
type ProcessorError struct {
	Processor string
	Kind      ErrorKind
	Message   string
}

func (e *ProcessorError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Processor + ": " + string(e.Kind) + ": " + e.Message
}

// NewError builds a ProcessorError attributed to processor.
func NewError(processor string, kind ErrorKind, message string) *ProcessorError {
	return &ProcessorError{Processor: processor, Kind: kind, Message: message}
}
