package driver

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"ember/internal/ast"
	"ember/internal/astio"
	"ember/internal/decls"
	"ember/internal/diag"
	"ember/internal/project"
	"ember/internal/source"
)

// cleanUnit has a handled failing call, so it analyses without
// diagnostics and survives codegen.
func cleanUnit(t *testing.T) *astio.Bundle {
	t.Helper()
	b := ast.NewBuilder(ast.Hints{}, nil)
	table := decls.NewTable(nil)

	oops := table.NewClass(b.Intern("Oops"), decls.NoClassID)
	table.NewFunction(decls.Function{
		Name:   b.Intern("risky"),
		Return: table.Types.Builtins().Int,
		Error:  table.Class(oops).Type,
	})

	args := b.Args.New(source.Span{}, ast.MoodImperative, nil, nil)
	call := b.Exprs.NewCall(source.Span{}, ast.NoExprID, b.Intern("risky"), args)
	let := b.Stmts.NewLet(source.Span{}, b.Intern("x"), ast.NoTypeSynID, call, true)
	body := b.Stmts.NewBlock(source.Span{}, []ast.StmtID{let})
	table.NewFunction(decls.Function{Name: b.Intern("main"), Body: body})
	return astio.FromUnit("clean", b, table)
}

// brokenUnit leaves the failing call unhandled.
func brokenUnit(t *testing.T) *astio.Bundle {
	t.Helper()
	b := ast.NewBuilder(ast.Hints{}, nil)
	table := decls.NewTable(nil)

	oops := table.NewClass(b.Intern("Oops"), decls.NoClassID)
	table.NewFunction(decls.Function{
		Name:   b.Intern("risky"),
		Return: table.Types.Builtins().Int,
		Error:  table.Class(oops).Type,
	})

	args := b.Args.New(source.Span{}, ast.MoodImperative, nil, nil)
	call := b.Exprs.NewCall(source.Span{}, ast.NoExprID, b.Intern("risky"), args)
	stmt := b.Stmts.NewExpr(source.Span{}, call)
	body := b.Stmts.NewBlock(source.Span{}, []ast.StmtID{stmt})
	table.NewFunction(decls.Function{Name: b.Intern("main"), Body: body})
	return astio.FromUnit("broken", b, table)
}

func storeBundle(t *testing.T, dir, name string, bn *astio.Bundle) string {
	t.Helper()
	path := filepath.Join(dir, name+astio.Ext)
	if err := bn.Store(path); err != nil {
		t.Fatalf("store %s: %v", name, err)
	}
	return path
}

func TestAnalyseBundleCleanUnit(t *testing.T) {
	dir := t.TempDir()
	path := storeBundle(t, dir, "clean", cleanUnit(t))

	res, err := AnalyseBundle(context.Background(), path, Options{Codegen: true})
	if err != nil {
		t.Fatalf("AnalyseBundle: %v", err)
	}
	if res.Unit != "clean" {
		t.Fatalf("unit name lost: %q", res.Unit)
	}
	if res.Bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", res.Bag.Items())
	}
	// risky has no body; only main lowers
	if len(res.Funcs) != 1 {
		t.Fatalf("expected 1 lowered function, got %d", len(res.Funcs))
	}
	if len(res.Timing.Phases) == 0 {
		t.Fatal("no phases recorded")
	}
}

func TestAnalyseBundleReportsUnhandledCall(t *testing.T) {
	dir := t.TempDir()
	path := storeBundle(t, dir, "broken", brokenUnit(t))

	res, err := AnalyseBundle(context.Background(), path, Options{Codegen: true})
	if err != nil {
		t.Fatalf("AnalyseBundle: %v", err)
	}
	if !res.Bag.HasErrors() {
		t.Fatal("expected a diagnostic for the unhandled failing call")
	}
	if res.Bag.Items()[0].Code != diag.ErrUnhandledCall {
		t.Fatalf("wrong code: %v", res.Bag.Items()[0].Code)
	}
	if len(res.Funcs) != 0 {
		t.Fatal("codegen must not run over a broken unit")
	}
}

func TestAnalyseDirOrdersResultsByPath(t *testing.T) {
	dir := t.TempDir()
	storeBundle(t, dir, "b-broken", brokenUnit(t))
	storeBundle(t, dir, "a-clean", cleanUnit(t))

	results, err := AnalyseDir(context.Background(), dir, Options{Jobs: 4})
	if err != nil {
		t.Fatalf("AnalyseDir: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Unit != "clean" || results[1].Unit != "broken" {
		t.Fatalf("results out of path order: %q, %q", results[0].Unit, results[1].Unit)
	}

	merged := MergeBags(results)
	if merged.Len() != results[0].Bag.Len()+results[1].Bag.Len() {
		t.Fatalf("merge dropped diagnostics: %d", merged.Len())
	}
}

func TestAnalyseDirUsesCacheOnSecondRun(t *testing.T) {
	dir := t.TempDir()
	storeBundle(t, dir, "broken", brokenUnit(t))

	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	opts := Options{Cache: cache}

	first, err := AnalyseDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first[0].Cached {
		t.Fatal("first run must not hit the cache")
	}

	second, err := AnalyseDir(context.Background(), dir, opts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second[0].Cached {
		t.Fatal("second run should hit the cache")
	}
	if second[0].Bag.Len() != first[0].Bag.Len() {
		t.Fatalf("cached diagnostics differ: %d != %d",
			second[0].Bag.Len(), first[0].Bag.Len())
	}
	if second[0].Bag.Items()[0].Code != first[0].Bag.Items()[0].Code {
		t.Fatal("cached diagnostic code differs")
	}
}

func TestAnalyseBundleAppliesRules(t *testing.T) {
	dir := t.TempDir()
	path := storeBundle(t, dir, "broken", brokenUnit(t))

	rules, err := project.ParseRules([]byte("suppress:\n  - EMB5001\n"))
	if err != nil {
		t.Fatalf("parse rules: %v", err)
	}
	res, err := AnalyseBundle(context.Background(), path, Options{Rules: rules})
	if err != nil {
		t.Fatalf("AnalyseBundle: %v", err)
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("suppressed diagnostic still present: %+v", res.Bag.Items())
	}
}

func TestAnalyseBundleEmitsPhaseEvents(t *testing.T) {
	dir := t.TempDir()
	path := storeBundle(t, dir, "clean", cleanUnit(t))

	var mu sync.Mutex
	seen := map[string]int{}
	observer := func(ev PhaseEvent) {
		if ev.Status == PhaseEnd {
			mu.Lock()
			seen[ev.Name]++
			mu.Unlock()
		}
	}

	if _, err := AnalyseBundle(context.Background(), path, Options{Observer: observer}); err != nil {
		t.Fatalf("AnalyseBundle: %v", err)
	}
	for _, phase := range []string{"load", "build", "analyse"} {
		if seen[phase] != 1 {
			t.Fatalf("phase %q reported %d times", phase, seen[phase])
		}
	}
}

func TestMergeTimingsPrefixesUnits(t *testing.T) {
	dir := t.TempDir()
	storeBundle(t, dir, "clean", cleanUnit(t))

	results, err := AnalyseDir(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("AnalyseDir: %v", err)
	}
	report := MergeTimings(results)
	if len(report.Phases) == 0 {
		t.Fatal("no phases merged")
	}
	if report.Phases[0].Name != "clean/load" {
		t.Fatalf("phase not prefixed with unit: %q", report.Phases[0].Name)
	}
}
