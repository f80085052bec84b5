package sema

import (
	"testing"

	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/source"
	"ember/internal/types"
)

func TestDiscardedCallResultStaysTemporary(t *testing.T) {
	env := newTestEnv()
	thing := env.addClass("Thing", decls.NoClassID)
	env.addFunction("make", decls.Function{Return: env.classType(thing)})

	call := env.freeCall("make")
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, call))
	env.addFunction("main", decls.Function{Body: body})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if !res.IsTemporary(call) {
		t.Fatal("nothing took the value; it must stay a temporary")
	}
	if !res.ProducesTemporaryObject(call) {
		t.Fatal("a discarded managed value must be registered for release")
	}
}

func TestLetBindingTakesValue(t *testing.T) {
	env := newTestEnv()
	thing := env.addClass("Thing", decls.NoClassID)
	env.addFunction("make", decls.Function{Return: env.classType(thing)})

	call := env.freeCall("make")
	let := env.b.Stmts.NewLet(source.Span{}, env.intern("x"), ast.NoTypeSynID, call, false)
	env.addFunction("main", decls.Function{Body: env.block(let)})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if res.IsTemporary(call) {
		t.Fatal("the binding took the value")
	}
	if res.ProducesTemporaryObject(call) {
		t.Fatal("a taken value must not be registered for release")
	}
}

func TestAssignmentTakesValue(t *testing.T) {
	env := newTestEnv()
	thing := env.addClass("Thing", decls.NoClassID)
	env.addFunction("make", decls.Function{Return: env.classType(thing)})

	first := env.freeCall("make")
	let := env.b.Stmts.NewLet(source.Span{}, env.intern("x"), ast.NoTypeSynID, first, false)
	second := env.freeCall("make")
	assign := env.b.Stmts.NewAssign(source.Span{}, env.intern("x"), second)
	env.addFunction("main", decls.Function{Body: env.block(let, assign)})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if res.IsTemporary(second) {
		t.Fatal("the assignment took the value")
	}
}

func TestReturnTakesValue(t *testing.T) {
	env := newTestEnv()
	thing := env.addClass("Thing", decls.NoClassID)
	env.addFunction("make", decls.Function{Return: env.classType(thing)})

	call := env.freeCall("make")
	ret := env.b.Stmts.NewReturn(source.Span{}, call)
	env.addFunction("main", decls.Function{
		Return: env.classType(thing),
		Body:   env.block(ret),
	})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if res.IsTemporary(call) {
		t.Fatal("returning moves the value out of the function")
	}
}

func TestEscapingArgumentIsTaken(t *testing.T) {
	env := newTestEnv()
	thing := env.addClass("Thing", decls.NoClassID)
	env.addFunction("make", decls.Function{Return: env.classType(thing)})
	env.addFunction("keep", decls.Function{
		Params: []decls.Param{{Name: env.intern("t"), Type: env.classType(thing), Escaping: true}},
		Return: env.builtins().Int,
	})

	arg := env.freeCall("make")
	outer := env.freeCall("keep", arg)
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, outer))
	env.addFunction("main", decls.Function{Body: body})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if res.IsTemporary(arg) {
		t.Fatal("callee keeps the argument; the caller no longer owns it")
	}
}

func TestBorrowedArgumentStaysTemporary(t *testing.T) {
	env := newTestEnv()
	thing := env.addClass("Thing", decls.NoClassID)
	env.addFunction("make", decls.Function{Return: env.classType(thing)})
	env.addFunction("use", decls.Function{
		Params: []decls.Param{{Name: env.intern("t"), Type: env.classType(thing)}},
		Return: env.builtins().Int,
	})

	arg := env.freeCall("make")
	outer := env.freeCall("use", arg)
	body := env.block(env.b.Stmts.NewExpr(source.Span{}, outer))
	env.addFunction("main", decls.Function{Body: body})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if !res.IsTemporary(arg) {
		t.Fatal("a borrowed argument stays a temporary of the caller")
	}
	if !res.ProducesTemporaryObject(arg) {
		t.Fatal("the borrowed temporary must be registered for release")
	}
}

func TestTakingAWrapperTakesTheWholeChain(t *testing.T) {
	env := newTestEnv()
	thing := env.addClass("Thing", decls.NoClassID)
	env.addFunction("make", decls.Function{Return: env.classType(thing)})

	call := env.freeCall("make")
	inner := env.b.Exprs.NewGroup(source.Span{}, call)
	outer := env.b.Exprs.NewGroup(source.Span{}, inner)
	let := env.b.Stmts.NewLet(source.Span{}, env.intern("x"), ast.NoTypeSynID, outer, false)
	env.addFunction("main", decls.Function{Body: env.block(let)})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	for _, id := range []ast.ExprID{outer, inner, call} {
		if res.IsTemporary(id) {
			t.Fatalf("expression %d must be taken along the forwarding chain", id)
		}
	}
}

func TestUpcastForwardsOwnershipToWrappedCall(t *testing.T) {
	env := newTestEnv()
	base := env.addClass("Base", decls.NoClassID)
	derived := env.addClass("Derived", base)
	env.addFunction("make", decls.Function{Return: env.classType(derived)})

	call := env.freeCall("make")
	baseSyn := env.b.TypeSyns.New(source.Span{}, env.intern("Base"), false)
	let := env.b.Stmts.NewLet(source.Span{}, env.intern("x"), baseSyn, call, false)
	env.addFunction("main", decls.Function{Body: env.block(let)})

	res, bag := runCheck(t, env)
	expectClean(t, bag)

	// Type analysis reparented the call under a widening wrapper.
	letData, _ := env.b.Stmts.Let(let)
	wrapper := letData.Init
	if kind := env.b.Exprs.Get(wrapper).Kind; kind != ast.ExprUpcast {
		t.Fatalf("expected an upcast wrapper in the binding slot, got %v", kind)
	}
	if child, _ := env.b.Exprs.ForwardedChild(wrapper); child != call {
		t.Fatalf("wrapper must hold the original call, got %d", child)
	}
	if tp, _ := res.ExprType(wrapper); tp != env.classType(base) {
		t.Fatalf("wrapper must carry the widened type, got %v", tp)
	}
	if res.IsTemporary(wrapper) || res.IsTemporary(call) {
		t.Fatal("taking the wrapper must take the wrapped call too")
	}
}

func TestCondAssignTakesItsChild(t *testing.T) {
	env := newTestEnv()
	env.addFunction("maybe", decls.Function{
		Return: env.table.Types.Intern(types.MakeOptional(env.builtins().String)),
	})

	call := env.freeCall("maybe")
	cond := env.b.Exprs.NewCondAssign(source.Span{}, env.intern("s"), call)
	thenBody := env.block(env.b.Stmts.NewExpr(source.Span{}, env.b.Exprs.NewIdent(source.Span{}, env.intern("s"))))
	ifStmt := env.b.Stmts.NewIf(source.Span{}, cond, thenBody, ast.NoStmtID)
	env.addFunction("main", decls.Function{Body: env.block(ifStmt)})

	res, bag := runCheck(t, env)
	expectClean(t, bag)
	if res.IsTemporary(call) {
		t.Fatal("the conditional binding took the optional's value")
	}
	if bound, ok := res.CondBinding(cond); !ok || bound != env.builtins().String {
		t.Fatalf("binding must carry the unwrapped type, got %v", bound)
	}
}

func TestReanalysisOfSameTreeIsStable(t *testing.T) {
	env := newTestEnv()
	base := env.addClass("Base", decls.NoClassID)
	derived := env.addClass("Derived", base)
	env.addFunction("make", decls.Function{Return: env.classType(derived)})

	call := env.freeCall("make")
	baseSyn := env.b.TypeSyns.New(source.Span{}, env.intern("Base"), false)
	let := env.b.Stmts.NewLet(source.Span{}, env.intern("x"), baseSyn, call, false)
	env.addFunction("main", decls.Function{Body: env.block(let)})

	first, bag := runCheck(t, env)
	expectClean(t, bag)
	letData, _ := env.b.Stmts.Let(let)
	wrapper := letData.Init

	// A second run over the already-rewritten tree must not stack another
	// wrapper and must reach the same conclusions.
	second, bag2 := runCheck(t, env)
	expectClean(t, bag2)
	if again, _ := env.b.Stmts.Let(let); again.Init != wrapper {
		t.Fatal("re-analysis must not insert a second wrapper")
	}
	if first.IsTemporary(call) != second.IsTemporary(call) {
		t.Fatal("runs disagree on the call's temporary flag")
	}
}
