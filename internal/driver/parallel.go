package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// EventKind distinguishes progress notifications during CheckDir.
type EventKind uint8

const (
	EventUnitStarted EventKind = iota
	EventUnitFinished
)

// Event is one progress notification for a UI consumer.
type Event struct {
	Kind  EventKind
	Path  string
	Index int // position in the sorted file list
	Total int

	// Finished-only fields.
	Errors   int
	Warnings int
	CacheHit bool
}

// ListUnitFiles returns every *.toml under dir, sorted for a
// deterministic check order.
func ListUnitFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".toml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// CheckDir checks every unit fixture under dir in parallel, bounded by
// opts.Jobs. Results come back in sorted-path order regardless of
// completion order. Each unit owns its file set and checker; nothing is
// shared across goroutines but the cache, which locks internally.
func CheckDir(ctx context.Context, dir string, opts Options) ([]*UnitResult, error) {
	files, err := ListUnitFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]*UnitResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emit(opts.Events, Event{Kind: EventUnitStarted, Path: path, Index: i, Total: len(files)})

			res, err := CheckUnit(gctx, path, opts)
			if err != nil {
				return err
			}
			// Index i is unique per goroutine; no mutex needed.
			results[i] = res

			errors, warnings := 0, 0
			for _, d := range res.Bag.Items() {
				switch {
				case d.Severity.IsError():
					errors++
				case d.Severity.IsWarning():
					warnings++
				}
			}
			emit(opts.Events, Event{
				Kind: EventUnitFinished, Path: path, Index: i, Total: len(files),
				Errors: errors, Warnings: warnings, CacheHit: res.CacheHit,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func emit(ch chan<- Event, ev Event) {
	if ch != nil {
		ch <- ev
	}
}
