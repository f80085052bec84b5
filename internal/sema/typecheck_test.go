package sema

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/types"
)

func TestLiteralTypes(t *testing.T) {
	env := newTestEnv()
	lit := env.b.Exprs.NewLit(source.Span{}, ast.LitStr, env.intern("hi"))
	let := env.b.Stmts.NewLet(source.Span{}, env.intern("s"), ast.NoTypeSynID, lit, false)
	env.addFunction("main", decls.Function{Body: env.block(let)})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if tp, ok := res.ExprType(lit); !ok || tp != env.builtins().String {
		t.Fatalf("string literal must be String, got %v", tp)
	}
}

func TestUnresolvedNameIsReported(t *testing.T) {
	env := newTestEnv()
	ident := env.b.Exprs.NewIdent(source.Span{}, env.intern("ghost"))
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, ident))
	env.addFunction("main", decls.Function{Body: body})

	_, bag := runCheck(t, env)
	if !hasCode(bag, diag.SemaUnresolvedName) {
		t.Fatalf("expected %v, got %v", diag.SemaUnresolvedName, diagCodes(bag))
	}
}

func TestTypeMismatchIsReported(t *testing.T) {
	env := newTestEnv()
	lit := env.b.Exprs.NewLit(source.Span{}, ast.LitInt, env.intern("1"))
	strSyn := env.b.TypeSyns.New(source.Span{}, env.intern("String"), false)
	let := env.b.Stmts.NewLet(source.Span{}, env.intern("s"), strSyn, lit, false)
	env.addFunction("main", decls.Function{Body: env.block(let)})

	_, bag := runCheck(t, env)
	if !hasCode(bag, diag.SemaTypeMismatch) {
		t.Fatalf("expected %v, got %v", diag.SemaTypeMismatch, diagCodes(bag))
	}
}

func TestArityMismatchIsReported(t *testing.T) {
	env := newTestEnv()
	env.addFunction("pair", decls.Function{
		Params: []decls.Param{
			{Name: env.intern("a"), Type: env.builtins().Int},
			{Name: env.intern("b"), Type: env.builtins().Int},
		},
		Return: env.builtins().Int,
	})
	call := env.freeCall("pair", env.b.Exprs.NewLit(source.Span{}, ast.LitInt, env.intern("1")))
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, call))
	env.addFunction("main", decls.Function{Body: body})

	_, bag := runCheck(t, env)
	if !hasCode(bag, diag.SemaArityMismatch) {
		t.Fatalf("expected %v, got %v", diag.SemaArityMismatch, diagCodes(bag))
	}
}

func TestMethodResolutionWalksSuperChain(t *testing.T) {
	env := newTestEnv()
	base := env.addClass("Base", decls.NoClassID)
	env.addFunction("size", decls.Function{Owner: base, Return: env.builtins().Int})
	derived := env.addClass("Derived", base)
	env.addFunction("make", decls.Function{Return: env.classType(derived)})

	recv := env.freeCall("make")
	call := env.b.Exprs.NewCall(source.Span{}, recv, env.intern("size"), env.args())
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, call))
	env.addFunction("main", decls.Function{Body: body})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if tp, _ := res.ExprType(call); tp != env.builtins().Int {
		t.Fatalf("inherited method must resolve, got type %v", tp)
	}
}

func TestMoodSelectsOverload(t *testing.T) {
	env := newTestEnv()
	env.addFunction("empty", decls.Function{Mood: ast.MoodInterrogative, Return: env.builtins().Bool})

	args := env.b.Args.New(source.Span{}, ast.MoodInterrogative, nil, nil)
	call := env.b.Exprs.NewCall(source.Span{}, ast.NoExprID, env.intern("empty"), args)
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, call))
	env.addFunction("main", decls.Function{Body: body})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if tp, _ := res.ExprType(call); tp != env.builtins().Bool {
		t.Fatalf("interrogative overload must resolve, got type %v", tp)
	}
}

func TestCallableCallUsesSignature(t *testing.T) {
	env := newTestEnv()
	callableType := env.table.Types.InternCallable(
		[]types.TypeID{env.builtins().Int}, env.builtins().String)
	fvar := env.b.Exprs.NewIdent(source.Span{}, env.intern("f"))
	arg := env.b.Exprs.NewLit(source.Span{}, ast.LitInt, env.intern("1"))
	call := env.b.Exprs.NewCallableCall(source.Span{}, fvar, env.args(arg))
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, call))
	env.addFunction("apply", decls.Function{
		Params: []decls.Param{{Name: env.intern("f"), Type: callableType}},
		Body:   body,
	})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if tp, _ := res.ExprType(call); tp != env.builtins().String {
		t.Fatalf("callable call must use the signature's return type, got %v", tp)
	}
	if info, ok := res.CallAt(call); !ok || info.Prone {
		t.Fatal("a callable value carries no failure contract")
	}
}

func TestCallingNonCallableIsReported(t *testing.T) {
	env := newTestEnv()
	lit := env.b.Exprs.NewLit(source.Span{}, ast.LitInt, env.intern("1"))
	call := env.b.Exprs.NewCallableCall(source.Span{}, lit, env.args())
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, call))
	env.addFunction("main", decls.Function{Body: body})

	_, bag := runCheck(t, env)
	if !hasCode(bag, diag.SemaNotCallable) {
		t.Fatalf("expected %v, got %v", diag.SemaNotCallable, diagCodes(bag))
	}
}

func TestUnwrapNonOptionalIsReported(t *testing.T) {
	env := newTestEnv()
	lit := env.b.Exprs.NewLit(source.Span{}, ast.LitInt, env.intern("1"))
	unwrap := env.b.Exprs.NewUnwrap(source.Span{}, lit)
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, unwrap))
	env.addFunction("main", decls.Function{Body: body})

	_, bag := runCheck(t, env)
	if !hasCode(bag, diag.SemaNotOptional) {
		t.Fatalf("expected %v, got %v", diag.SemaNotOptional, diagCodes(bag))
	}
}

func TestDuplicateVariableIsReported(t *testing.T) {
	env := newTestEnv()
	litA := env.b.Exprs.NewLit(source.Span{}, ast.LitInt, env.intern("1"))
	litB := env.b.Exprs.NewLit(source.Span{}, ast.LitInt, env.intern("2"))
	letA := env.b.Stmts.NewLet(source.Span{}, env.intern("x"), ast.NoTypeSynID, litA, false)
	letB := env.b.Stmts.NewLet(source.Span{}, env.intern("x"), ast.NoTypeSynID, litB, false)
	env.addFunction("main", decls.Function{Body: env.block(letA, letB)})

	_, bag := runCheck(t, env)
	if !hasCode(bag, diag.SemaDuplicateVariable) {
		t.Fatalf("expected %v, got %v", diag.SemaDuplicateVariable, diagCodes(bag))
	}
}

func TestCondAssignBindingScopedToThenBranch(t *testing.T) {
	env := newTestEnv()
	env.addFunction("maybe", decls.Function{
		Return: env.optionalOf(env.builtins().Int),
	})

	cond := env.b.Exprs.NewCondAssign(source.Span{}, env.intern("v"), env.freeCall("maybe"))
	thenBody := env.block()
	ifStmt := env.b.Stmts.NewIf(source.Span{}, cond, thenBody, ast.NoStmtID)
	// Using the binding after the if must fail: it is scoped to the branch.
	after := env.b.Stmts.NewExpr(source.Span{}, env.b.Exprs.NewIdent(source.Span{}, env.intern("v")))
	env.addFunction("main", decls.Function{Body: env.block(ifStmt, after)})

	_, bag := runCheck(t, env)
	if !hasCode(bag, diag.SemaUnresolvedName) {
		t.Fatalf("expected %v after the branch, got %v", diag.SemaUnresolvedName, diagCodes(bag))
	}
}

func TestSizeOfIsInt(t *testing.T) {
	env := newTestEnv()
	syn := env.b.TypeSyns.New(source.Span{}, env.intern("Int"), false)
	sizeOf := env.b.Exprs.NewSizeOf(source.Span{}, syn)
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, sizeOf))
	env.addFunction("main", decls.Function{Body: body})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if tp, _ := res.ExprType(sizeOf); tp != env.builtins().Int {
		t.Fatalf("size-of must be Int, got %v", tp)
	}
}
