// Package parse implements the first stage of the pipeline: lifting a raw
// user-supplied string into a [fop.Fop] and, optionally, validating it.
package parse

import (
	"context"

	"github.com/fxsml/fop/fop"
)

// Processor validates that a fop's FileOrPattern is set, attaching a
// Config error when Guard is enabled and it is empty. With Guard disabled
// (the default), every fop passes through unchanged; this is the
// conventional place to add identity validation, not where it is enforced
// by default.
type Processor struct {
	// Guard enables the empty-FileOrPattern check. Default: false.
	Guard bool
}

func (p Processor) Name() string { return "Parse" }

func (p Processor) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	if p.Guard && f.FileOrPattern == "" {
		return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindConfig, "file_or_pattern is empty"))}, nil
	}
	return []fop.Fop{f}, nil
}

// FromStrings lifts a slice of raw strings into a slice of fops, preserving
// order. The convenience counterpart of a source that feeds a Parse stage.
func FromStrings(strings []string) []fop.Fop {
	out := make([]fop.Fop, len(strings))
	for i, s := range strings {
		out[i] = fop.New(s)
	}
	return out
}
