// Package glob implements the Glob stage: expanding a fop's FileOrPattern
// into zero or more sibling fops, one per matched path.
//
// A pattern is decomposed into a base directory and a relative glob at the
// first wildcard-bearing path component (see pattern.go); patterns with no
// wildcards take a literal fast path that skips traversal entirely.
// Pattern compilation and matching use github.com/bmatcuk/doublestar/v4,
// which supports "**" recursive matching.
package glob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/throttle"
)

// DefaultConcurrency caps simultaneous directory scans, to avoid
// file-descriptor exhaustion when many patterns are expanded at once.
const DefaultConcurrency = 64

// Processor expands FileOrPattern against the filesystem. It is a no-op
// on any fop whose Filename is already set.
type Processor struct {
	// Concurrency bounds simultaneous directory scans across every call to
	// ProcessOne sharing this Processor value. Zero means DefaultConcurrency.
	Concurrency int

	sem *throttle.Semaphore
}

// NewProcessor builds a Processor with its own scan-concurrency pool.
func NewProcessor(concurrency int) *Processor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Processor{Concurrency: concurrency, sem: throttle.NewSemaphore(int64(concurrency))}
}

func (p *Processor) Name() string { return "Glob" }

func (p *Processor) semaphore() *throttle.Semaphore {
	if p.sem == nil {
		c := p.Concurrency
		if c <= 0 {
			c = DefaultConcurrency
		}
		p.sem = throttle.NewSemaphore(int64(c))
	}
	return p.sem
}

func (p *Processor) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	if f.Filename != nil {
		return []fop.Fop{f}, nil
	}

	pattern := f.FileOrPattern

	if !hasWildcards(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, nil
		}
		if info.IsDir() {
			return nil, nil
		}
		return []fop.Fop{f.WithFilename(pattern)}, nil
	}

	baseDir, relGlob := splitPattern(pattern)

	if _, err := doublestar.Match(relGlob, "probe"); err != nil {
		return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindBadPattern, err.Error()))}, nil
	}

	if _, err := os.Stat(baseDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindNotFound, "base directory does not exist: "+baseDir))}, nil
		}
		return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindIO, err.Error()))}, nil
	}

	sem := p.semaphore()
	if err := sem.Acquire(ctx); err != nil {
		return []fop.Fop{f.WithErr(fop.NewError(p.Name(), fop.KindScanError, err.Error()))}, nil
	}
	defer sem.Release()

	var results []fop.Fop
	match := fop.NewMatch(pattern)

	walkErr := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(baseDir, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		ok, matchErr := doublestar.Match(relGlob, rel)
		if matchErr != nil {
			return matchErr
		}
		if !ok {
			return nil
		}

		sibling := f.Clone()
		sibling.Match = match
		results = append(results, sibling.WithFilename(path))
		return nil
	})

	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		errFop := f.WithErr(fop.NewError(p.Name(), fop.KindScanError, walkErr.Error()))
		if len(results) == 0 {
			return []fop.Fop{errFop}, nil
		}
		results = append(results, errFop)
	}

	return results, nil
}
