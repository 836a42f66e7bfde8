// Package readcontent implements the ReadContent stage: reading the file
// named by a fop's Filename into memory, either as raw bytes or as UTF-8
// text with a byte fallback for undecodable files.
package readcontent

import (
	"context"
	"os"
	"unicode/utf8"

	"github.com/fxsml/fop/fop"
)

// Processor reads Filename's contents. It is a no-op on any fop whose
// Filename is unset, and on any fop that already carries content (such as
// captured subprocess output from an upstream Execute stage).
type Processor struct {
	// AsText attempts UTF-8 decoding, falling back to raw bytes on
	// decode failure. Default: false (always store raw bytes).
	AsText bool

	// RecordEncoding, when true, sets Encoding to "utf8" or "binary"
	// depending on how Content ended up being stored. Meaningless when
	// AsText is false.
	RecordEncoding bool
}

func (p Processor) Name() string { return "ReadContent" }

func (p Processor) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	if f.Filename == nil || f.Content != nil {
		return []fop.Fop{f}, nil
	}

	data, err := os.ReadFile(*f.Filename)
	if err != nil {
		return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindIO, err.Error()))}, nil
	}

	if !p.AsText {
		f.Content = fop.BytesContent(data)
		return []fop.Fop{f}, nil
	}

	if utf8.Valid(data) {
		f.Content = fop.TextContent(string(data))
		if p.RecordEncoding {
			f.Encoding = strPtr("utf8")
		}
	} else {
		f.Content = fop.BytesContent(data)
		if p.RecordEncoding {
			f.Encoding = strPtr("binary")
		}
	}

	return []fop.Fop{f}, nil
}

func strPtr(s string) *string { return &s }
