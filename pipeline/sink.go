package pipeline

import (
	"github.com/fxsml/fop/channel"
	"github.com/fxsml/fop/fop"
)

// Collect drains the stream returned by [Pipeline.Run] into a slice. If a
// fail-fast Guard terminated the stream, Collect returns its error and no
// fops; the partial results preceding the failure are discarded.
func Collect(in <-chan fop.Fop, errs <-chan error) ([]fop.Fop, error) {
	results := channel.ToSlice(in)
	if err, ok := <-errs; ok {
		return nil, err
	}
	return results, nil
}

// ForEach invokes fn once per fop in stream order, then reports the
// terminal error, if any. fn is called from a single goroutine.
func ForEach(in <-chan fop.Fop, errs <-chan error, fn func(fop.Fop)) error {
	for f := range in {
		fn(f)
	}
	if err, ok := <-errs; ok {
		return err
	}
	return nil
}
