package diagfmt

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/types"
)

func TestCodeRendererSpellsCallShapes(t *testing.T) {
	b := ast.NewBuilder(ast.Hints{}, nil)
	r := CodeRenderer{B: b}
	sp := source.Span{}

	recv := b.Exprs.NewIdent(sp, b.Intern("box"))
	arg := b.Exprs.NewLit(sp, ast.LitInt, b.Intern("7"))
	args := b.Args.New(sp, ast.MoodImperative, []ast.ExprID{arg}, nil)
	call := b.Exprs.NewCall(sp, recv, b.Intern("push"), args)

	if got := r.Expr(call); got != "box.push(7)" {
		t.Fatalf("method call rendered as %q", got)
	}

	free := b.Exprs.NewCall(sp, ast.NoExprID, b.Intern("make"),
		b.Args.New(sp, ast.MoodImperative, nil, nil))
	if got := r.Expr(free); got != "make()" {
		t.Fatalf("free call rendered as %q", got)
	}

	pred := b.Exprs.NewCall(sp, recv, b.Intern("empty"),
		b.Args.New(sp, ast.MoodInterrogative, nil, nil))
	if got := r.Expr(pred); got != "box.empty?()" {
		t.Fatalf("interrogative call rendered as %q", got)
	}
}

func TestCodeRendererSpellsWrappersAndLiterals(t *testing.T) {
	b := ast.NewBuilder(ast.Hints{}, nil)
	r := CodeRenderer{B: b}
	sp := source.Span{}

	str := b.Exprs.NewLit(sp, ast.LitStr, b.Intern("hi"))
	if got := r.Expr(str); got != `"hi"` {
		t.Fatalf("string literal rendered as %q", got)
	}

	inner := b.Exprs.NewIdent(sp, b.Intern("v"))
	group := b.Exprs.NewGroup(sp, inner)
	unwrap := b.Exprs.NewUnwrap(sp, group)
	if got := r.Expr(unwrap); got != "(v)!" {
		t.Fatalf("unwrap rendered as %q", got)
	}

	cond := b.Exprs.NewCondAssign(sp, b.Intern("x"), inner)
	if got := r.Expr(cond); got != "x =? v" {
		t.Fatalf("cond assign rendered as %q", got)
	}
}

func TestCodeRendererSpellsTypesAndUpcasts(t *testing.T) {
	b := ast.NewBuilder(ast.Hints{}, nil)
	interner := types.NewInterner()
	r := CodeRenderer{B: b, Types: interner}
	sp := source.Span{}

	syn := b.TypeSyns.New(sp, b.Intern("Box"), true)
	size := b.Exprs.NewSizeOf(sp, syn)
	if got := r.Expr(size); got != "sizeof(Box?)" {
		t.Fatalf("sizeof rendered as %q", got)
	}

	child := b.Exprs.NewIdent(sp, b.Intern("d"))
	up := b.Exprs.NewUpcast(sp, child, interner.Builtins().String)
	if got := r.Expr(up); got != "d as string" {
		t.Fatalf("upcast rendered as %q", got)
	}
}
