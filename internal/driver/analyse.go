package driver

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ember/internal/ast"
	"ember/internal/astio"
	"ember/internal/codegen"
	"ember/internal/decls"
	"ember/internal/diag"
	"ember/internal/ice"
	"ember/internal/observ"
	"ember/internal/project"
	"ember/internal/sema"
	"ember/internal/source"
)

// Options configures bundle analysis.
type Options struct {
	// MaxDiagnostics caps each unit's bag. Zero falls back to a default.
	MaxDiagnostics int
	// Jobs limits unit-level parallelism. Zero means GOMAXPROCS.
	Jobs int
	// Rules rewrites severities and suppresses codes before they reach
	// the bags. Nil applies no rewriting.
	Rules *project.Rules
	// Cache, when set, skips re-analysis of bundles whose content digest
	// already has a stored outcome.
	Cache *DiskCache
	// Observer receives phase boundaries. May be called concurrently.
	Observer PhaseObserver
	// Codegen lowers error-free units to instruction form.
	Codegen bool
}

const defaultMaxDiagnostics = 200

// UnitResult is the outcome of analysing one bundle.
type UnitResult struct {
	Path    string
	Unit    string
	Files   *source.FileSet
	Bag     *diag.Bag
	Builder *ast.Builder
	Table   *decls.Table
	Sema    *sema.Result
	Funcs   []*codegen.Func
	Timing  observ.Report
	Cached  bool
}

// ListBundles returns the sorted paths of all AST bundles under dir.
func ListBundles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, astio.Ext) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// deterministic order regardless of filesystem
	sort.Strings(files)
	return files, nil
}

// AnalyseBundle loads one bundle, replays its unit and runs the full
// analysis over every function. User diagnostics land in the result's
// bag; the returned error covers I/O, malformed bundles and internal
// invariant violations.
func AnalyseBundle(ctx context.Context, path string, opts Options) (*UnitResult, error) {
	maxDiags := opts.MaxDiagnostics
	if maxDiags <= 0 {
		maxDiags = defaultMaxDiagnostics
	}
	timer := observ.NewTimer()
	unit := filepath.Base(path)

	var bundle *astio.Bundle
	started := opts.Observer.begin(unit, "load")
	err := timer.Track("load", func() error {
		var err error
		bundle, err = astio.Load(path)
		return err
	})
	opts.Observer.end(unit, "load", started)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	res := &UnitResult{
		Path:  path,
		Unit:  bundle.Unit,
		Files: bundle.FileSet(),
		Bag:   diag.NewBag(maxDiags),
	}

	hash, err := project.HashFile(path)
	if err != nil {
		return nil, err
	}
	var cached DiskPayload
	if hit, err := opts.Cache.Get(hash, &cached); err == nil && hit {
		cached.fill(res.Bag)
		res.Cached = true
		res.Timing = timer.Report()
		return res, nil
	}

	started = opts.Observer.begin(unit, "build")
	err = timer.Track("build", func() error {
		var err error
		res.Builder, res.Table, err = bundle.BuildUnit()
		return err
	})
	opts.Observer.end(unit, "build", started)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: %w", path, err)
	}

	var reporter diag.Reporter = diag.BagReporter{Bag: res.Bag}
	if opts.Rules != nil {
		reporter = opts.Rules.Apply(reporter)
	}

	// Functions of one unit share arenas, so they run sequentially;
	// parallelism lives at the unit level in AnalyseDir.
	started = opts.Observer.begin(unit, "analyse")
	err = timer.Track("analyse", func() error {
		semaRes := sema.NewResult(res.Table.Types)
		res.Sema = semaRes
		for _, fn := range res.Table.Functions() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := sema.CheckFunction(res.Builder, res.Table, semaRes, reporter, fn); err != nil {
				return err
			}
		}
		return nil
	})
	opts.Observer.end(unit, "analyse", started)
	if err != nil {
		if ice.Is(err) {
			// keep the fault visible in the unit's report as well
			res.Bag.Add(diag.NewError(diag.InternalFault, source.Span{},
				"internal fault, unit aborted: "+err.Error()))
		}
		return res, err
	}

	if opts.Codegen && !res.Bag.HasErrors() {
		started = opts.Observer.begin(unit, "codegen")
		err = timer.Track("codegen", func() error {
			var err error
			res.Funcs, err = codegen.GenerateAll(res.Builder, res.Table, res.Sema)
			return err
		})
		opts.Observer.end(unit, "codegen", started)
		if err != nil {
			return nil, err
		}
	}

	res.Bag.Sort()
	res.Timing = timer.Report()

	if opts.Cache != nil {
		payload := payloadFromBag(res.Unit, hash, res.Table.Len(), res.Bag)
		if err := opts.Cache.Put(hash, payload); err != nil {
			return nil, fmt.Errorf("cache %s: %w", path, err)
		}
	}
	return res, nil
}

// AnalyseDir analyses every bundle under dir in parallel. Results come
// back in path order regardless of completion order.
func AnalyseDir(ctx context.Context, dir string, opts Options) ([]*UnitResult, error) {
	files, err := ListBundles(dir)
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
			res, err := AnalyseBundle(gctx, path, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// MergeBags combines per-unit bags into one, preserving the
// deterministic unit order AnalyseDir established.
func MergeBags(results []*UnitResult) *diag.Bag {
	total := 0
	for _, r := range results {
		if r != nil {
			total += r.Bag.Len()
		}
	}
	merged := diag.NewBag(max(total, 1))
	for _, r := range results {
		if r != nil {
			merged.Merge(r.Bag)
		}
	}
	return merged
}

// MergeTimings prefixes each unit's phases with its name and combines
// them into one report for --timings output.
func MergeTimings(results []*UnitResult) observ.Report {
	var merged observ.Report
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, p := range r.Timing.Phases {
			name := p.Name
			if r.Unit != "" {
				name = r.Unit + "/" + name
			}
			merged.Phases = append(merged.Phases, observ.PhaseReport{
				Name:       name,
				DurationMS: p.DurationMS,
				Note:       p.Note,
			})
		}
		merged.TotalMS += r.Timing.TotalMS
	}
	return merged
}
