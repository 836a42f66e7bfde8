package pipeline

import (
	"github.com/fxsml/fop/channel"
	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/parse"
)

// FromArgs lifts command-line positional arguments into a stream of fops,
// one per argument, preserving order. This is the canonical pipeline
// source.
func FromArgs(args []string) <-chan fop.Fop {
	return channel.FromSlice(parse.FromStrings(args))
}
