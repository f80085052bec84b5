package sema

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/types"
)

// testEnv bundles a fresh builder and declaration table for one test.
type testEnv struct {
	b     *ast.Builder
	table *decls.Table
}

func newTestEnv() *testEnv {
	return &testEnv{
		b:     ast.NewBuilder(ast.Hints{}, nil),
		table: decls.NewTable(nil),
	}
}

func (e *testEnv) intern(s string) source.StringID { return e.b.Intern(s) }

func (e *testEnv) builtins() types.Builtins { return e.table.Types.Builtins() }

func (e *testEnv) addClass(name string, super decls.ClassID) decls.ClassID {
	return e.table.NewClass(e.intern(name), super)
}

func (e *testEnv) classType(cls decls.ClassID) types.TypeID {
	return e.table.Class(cls).Type
}

func (e *testEnv) optionalOf(t types.TypeID) types.TypeID {
	return e.table.Types.Intern(types.MakeOptional(t))
}

func (e *testEnv) addFunction(name string, fn decls.Function) decls.FunctionID {
	fn.Name = e.intern(name)
	return e.table.NewFunction(fn)
}

func (e *testEnv) block(stmts ...ast.StmtID) ast.StmtID {
	return e.b.Stmts.NewBlock(source.Span{}, stmts)
}

func (e *testEnv) args(exprs ...ast.ExprID) ast.ArgsID {
	return e.b.Args.New(source.Span{}, ast.MoodImperative, exprs, nil)
}

// freeCall builds a zero-receiver call to a free function.
func (e *testEnv) freeCall(name string, exprs ...ast.ExprID) ast.ExprID {
	return e.b.Exprs.NewCall(source.Span{}, ast.NoExprID, e.intern(name), e.args(exprs...))
}

func runCheck(t *testing.T, e *testEnv) (*Result, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(64)
	res, err := Check(e.b, e.table, Options{Reporter: diag.BagReporter{Bag: bag}})
	if err != nil {
		t.Fatalf("internal analysis fault: %v", err)
	}
	return res, bag
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func diagCodes(bag *diag.Bag) []diag.Code {
	codes := make([]diag.Code, 0, bag.Len())
	for _, d := range bag.Items() {
		codes = append(codes, d.Code)
	}
	return codes
}

func expectClean(t *testing.T, bag *diag.Bag) {
	t.Helper()
	if bag.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %v", diagCodes(bag))
	}
}
