// Package checkexist implements the CheckExist stage: resolving a fop's
// FileOrPattern directly against the filesystem before Glob has to treat
// it as a pattern.
//
// Non-existence is silent (it is the expected signal for downstream
// pattern expansion to run); any other stat failure, such as a permission
// error on the containing directory, attaches an error to the fop.
package checkexist

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/fxsml/fop/fop"
)

// Processor sets Filename when FileOrPattern names an existing regular
// file. It never treats FileOrPattern as a glob; that is Glob's job.
type Processor struct{}

func (p Processor) Name() string { return "CheckExist" }

func (p Processor) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	if f.Filename != nil {
		return []fop.Fop{f}, nil
	}

	info, err := os.Stat(f.FileOrPattern)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []fop.Fop{f}, nil
		}
		return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindIO, err.Error()))}, nil
	}

	if info.IsDir() {
		return []fop.Fop{f}, nil
	}

	return []fop.Fop{f.WithFilename(f.FileOrPattern)}, nil
}
