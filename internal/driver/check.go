package driver

import (
	"context"
	"fmt"

	"flatns/internal/clash"
	"flatns/internal/diag"
	"flatns/internal/graph"
	"flatns/internal/naming"
	"flatns/internal/observ"
	"flatns/internal/source"
)

// DefaultMaxDiagnostics bounds the per-unit bag when the caller passes
// no explicit limit.
const DefaultMaxDiagnostics = 256

// Options tunes a unit check run.
type Options struct {
	// MaxDiagnostics caps the bag of each unit; zero means the default.
	MaxDiagnostics int

	// Jobs bounds directory-level parallelism; zero means GOMAXPROCS.
	Jobs int

	// Cache, when non-nil, serves previously rendered results keyed by
	// unit content.
	Cache *DiskCache

	// Timings enables phase timing on results.
	Timings bool

	// Events, when non-nil, receives per-unit progress during CheckDir.
	Events chan<- Event
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return DefaultMaxDiagnostics
	}
	return o.MaxDiagnostics
}

// UnitResult is the outcome of checking one unit fixture.
type UnitResult struct {
	Path    string
	Unit    string
	FileSet *source.FileSet
	FileID  source.FileID
	Graph   *graph.Result
	Bag     *diag.Bag

	CacheHit bool
	Timing   *observ.Report
}

// CheckUnit loads one unit fixture and runs clash analysis over every
// source declaration in fixture order. Load failures and clashes land
// in the result's bag; the returned error covers only collaborator
// contract violations inside the checker.
func CheckUnit(ctx context.Context, path string, opts Options) (*UnitResult, error) {
	timer := observ.NewTimer()
	res := &UnitResult{
		Path:    path,
		FileSet: source.NewFileSet(),
		Bag:     diag.NewBag(opts.maxDiagnostics()),
	}

	loadPhase := timer.Begin("load")
	fileID, err := res.FileSet.Load(path)
	if err != nil {
		res.Bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{},
			fmt.Sprintf("cannot load %q: %v", path, err)))
		timer.End(loadPhase, "failed")
		finishTiming(res, timer, opts)
		return res, nil
	}
	res.FileID = fileID

	if opts.Cache != nil {
		if payload, ok := opts.Cache.Lookup(res.FileSet.Get(fileID).Hash); ok {
			res.Unit = payload.Unit
			res.CacheHit = true
			replayCached(res.Bag, fileID, payload)
			timer.End(loadPhase, "cache hit")
			finishTiming(res, timer, opts)
			return res, nil
		}
	}

	reporter := diag.NewDedupReporter(diag.BagReporter{Bag: res.Bag})
	gr, err := graph.LoadFile(res.FileSet, fileID, reporter)
	if err != nil {
		// Syntax failure is already in the bag; nothing to check.
		timer.End(loadPhase, "syntax error")
		finishTiming(res, timer, opts)
		return res, nil
	}
	res.Graph = gr
	res.Unit = gr.Unit
	timer.End(loadPhase, fmt.Sprintf("%d decls", gr.Arena.Len()))

	checkPhase := timer.Begin("check")
	checker := clash.NewChecker(clash.Env{
		Decls:     gr.Arena,
		Suggester: naming.NewRules(gr.Arena),
		Reporter:  reporter,
	})
	for _, id := range gr.Order {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := checker.Check(id); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
	}
	timer.End(checkPhase, fmt.Sprintf("%d checked", len(gr.Order)))

	res.Bag.Sort()
	finishTiming(res, timer, opts)

	if opts.Cache != nil {
		// Best effort: a failed write only costs the next run a recheck.
		_ = opts.Cache.Store(res.FileSet.Get(fileID).Hash, cachePayload(res))
	}
	return res, nil
}

func finishTiming(res *UnitResult, timer *observ.Timer, opts Options) {
	if !opts.Timings {
		return
	}
	report := timer.Report()
	res.Timing = &report
}
