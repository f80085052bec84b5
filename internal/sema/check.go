// Package sema implements semantic analysis over compilation-unit ASTs:
// type analysis, checked error propagation, and memory-flow analysis
// deciding which produced values code generation must release.
package sema

import (
	"errors"

	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/diag"
)

// Options configures a semantic analysis run.
type Options struct {
	// Reporter receives user-facing diagnostics. Nil suppresses them.
	Reporter diag.Reporter
}

// Check analyses every function in the declaration table against the
// builder's AST. User errors go to the reporter; the returned error is
// non-nil only for internal invariant violations, in which case the
// result must not be fed to code generation.
func Check(b *ast.Builder, table *decls.Table, opts Options) (*Result, error) {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	res := NewResult(table.Types)
	for _, fn := range table.Functions() {
		checkFunction(b, table, res, reporter, fn)
	}
	return res, errors.Join(res.Internal()...)
}

// CheckFunction analyses a single function into an existing result.
// Callers that split work per unit use Check; this exists for targeted
// re-analysis of one body.
func CheckFunction(b *ast.Builder, table *decls.Table, res *Result, reporter diag.Reporter, fn decls.FunctionID) error {
	if reporter == nil {
		reporter = diag.NopReporter{}
	}
	checkFunction(b, table, res, reporter, fn)
	return errors.Join(res.Internal()...)
}

func checkFunction(b *ast.Builder, table *decls.Table, res *Result, reporter diag.Reporter, fn decls.FunctionID) {
	newExprAnalyser(b, table, res, reporter, fn).run()
	flow := &flowAnalyser{
		b:      b,
		table:  table,
		res:    res,
		fn:     fn,
		visits: make(map[ast.ExprID]int),
	}
	flow.run()
}
