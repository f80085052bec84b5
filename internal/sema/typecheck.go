package sema

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/types"
)

// exprAnalyser performs type analysis of one function: it resolves the
// result type of every expression exactly once, under the contextual
// expectation supplied by the parent construct.
type exprAnalyser struct {
	b        *ast.Builder
	table    *decls.Table
	res      *Result
	reporter diag.Reporter
	fn       decls.FunctionID
	scopes   []map[source.StringID]types.TypeID
}

func newExprAnalyser(b *ast.Builder, table *decls.Table, res *Result, reporter diag.Reporter, fn decls.FunctionID) *exprAnalyser {
	return &exprAnalyser{
		b:        b,
		table:    table,
		res:      res,
		reporter: reporter,
		fn:       fn,
	}
}

func (a *exprAnalyser) run() {
	fn := a.table.Function(a.fn)
	a.pushScope()
	for _, p := range fn.Params {
		a.define(p.Name, p.Type)
	}
	if fn.Body.IsValid() {
		a.stmt(fn.Body)
	}
	a.popScope()
	a.verifyErrorsHandled()
}

// Scopes ---------------------------------------------------------------------

func (a *exprAnalyser) pushScope() {
	a.scopes = append(a.scopes, make(map[source.StringID]types.TypeID))
}

func (a *exprAnalyser) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *exprAnalyser) define(name source.StringID, t types.TypeID) bool {
	top := a.scopes[len(a.scopes)-1]
	if _, dup := top[name]; dup {
		return false
	}
	top[name] = t
	return true
}

func (a *exprAnalyser) lookup(name source.StringID) (types.TypeID, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if t, ok := a.scopes[i][name]; ok {
			return t, true
		}
	}
	return types.NoTypeID, false
}

func (a *exprAnalyser) name(id source.StringID) string {
	s, _ := a.b.StringsInterner.Lookup(id)
	return s
}

// Statements -----------------------------------------------------------------

func (a *exprAnalyser) stmt(id ast.StmtID) {
	s := a.b.Stmts.Get(id)
	if s == nil {
		return
	}
	switch s.Kind {
	case ast.StmtBlock:
		data, _ := a.b.Stmts.Block(id)
		a.pushScope()
		for _, sub := range data.Stmts {
			a.stmt(sub)
		}
		a.popScope()
	case ast.StmtExpr:
		data, _ := a.b.Stmts.Expr(id)
		a.analyse(&data.Expr, NoExpectation())
	case ast.StmtLet:
		a.letStmt(id, s.Span)
	case ast.StmtAssign:
		data, _ := a.b.Stmts.Assign(id)
		varType, ok := a.lookup(data.Name)
		if !ok {
			diag.ReportError(a.reporter, diag.SemaUnresolvedName, s.Span,
				fmt.Sprintf("cannot assign to unknown variable %q", a.name(data.Name))).Emit()
			a.analyse(&data.Value, NoExpectation())
			return
		}
		a.analyse(&data.Value, Expect(varType))
	case ast.StmtReturn:
		data, _ := a.b.Stmts.Return(id)
		fn := a.table.Function(a.fn)
		if !data.Value.IsValid() {
			return
		}
		a.analyse(&data.Value, Expect(fn.Return))
	case ast.StmtIf:
		data, _ := a.b.Stmts.If(id)
		bt := a.table.Types.Builtins()
		// Bindings introduced by a conditional assignment are scoped to
		// the then-branch.
		a.pushScope()
		a.analyse(&data.Cond, Expect(bt.Bool))
		a.stmt(data.Then)
		a.popScope()
		if data.Else.IsValid() {
			a.stmt(data.Else)
		}
	}
}

func (a *exprAnalyser) letStmt(id ast.StmtID, span source.Span) {
	data, _ := a.b.Stmts.Let(id)
	exp := NoExpectation()
	if data.Type.IsValid() {
		exp = Expect(a.resolveTypeSyn(data.Type))
	}
	got := a.analyse(&data.Init, exp)

	if data.Try {
		call, ok := a.callTarget(data.Init)
		var info CallInfo
		if ok {
			info, _ = a.res.CallAt(call)
		}
		if !ok || !info.Prone {
			diag.ReportError(a.reporter, diag.ErrTryNotErrorProne, span,
				"try used on an expression that cannot fail").Emit()
		} else if _, arranged := a.res.HandledAt(call); arranged {
			// A propagate wrapper or a super-init delegation underneath
			// already arranged the failure path.
			diag.ReportError(a.reporter, diag.ErrAlreadyHandled, span,
				"cannot try an expression that already re-raises its failure").Emit()
		} else {
			a.res.SetHandled(call, HandleLocal)
		}
	}

	varType := got
	if !exp.None() {
		varType = exp.Type
	}
	if !a.define(data.Name, varType) {
		diag.ReportError(a.reporter, diag.SemaDuplicateVariable, span,
			fmt.Sprintf("variable %q already declared in this scope", a.name(data.Name))).Emit()
	}
}

// Expressions ----------------------------------------------------------------

// analyse resolves the type of the expression held by slot. The slot is
// the parent's owning reference; type analysis may replace its contents
// when it inserts a widening wrapper.
func (a *exprAnalyser) analyse(slot *ast.ExprID, exp Expectation) types.TypeID {
	id := *slot
	e := a.b.Exprs.Get(id)
	if e == nil {
		return types.NoTypeID
	}
	a.res.registerExpr(a.fn, id)

	var got types.TypeID
	switch e.Kind {
	case ast.ExprIdent:
		got = a.ident(id, e.Span)
	case ast.ExprLit:
		got = a.literal(id)
	case ast.ExprCall:
		got = a.call(id, e.Span)
	case ast.ExprCallableCall:
		got = a.callableCall(id, e.Span)
	case ast.ExprSuper:
		got = a.super(id, e.Span)
	case ast.ExprTypeAsValue:
		data, _ := a.b.Exprs.TypeAsValue(id)
		got = a.table.Types.Intern(types.MakeTypeValue(a.resolveTypeSyn(data.Type)))
	case ast.ExprSizeOf:
		data, _ := a.b.Exprs.SizeOf(id)
		a.resolveTypeSyn(data.Type)
		got = a.table.Types.Builtins().Int
	case ast.ExprCondAssign:
		got = a.condAssign(id, e.Span)
	case ast.ExprGroup:
		data, _ := a.b.Exprs.Unary(id)
		got = a.analyse(&data.Child, exp)
		a.res.SetExprType(id, got)
		return got // the group is fully transparent, including coercion
	case ast.ExprUnwrap:
		got = a.unwrap(id, e.Span)
	case ast.ExprPropagate:
		got = a.propagate(id, e.Span)
	case ast.ExprUpcast:
		data, _ := a.b.Exprs.Upcast(id)
		a.analyse(&data.Child, NoExpectation())
		got = data.Target
	}

	a.res.SetExprType(id, got)
	return a.coerce(slot, got, exp)
}

func (a *exprAnalyser) ident(id ast.ExprID, span source.Span) types.TypeID {
	data, _ := a.b.Exprs.Ident(id)
	t, ok := a.lookup(data.Name)
	if !ok {
		diag.ReportError(a.reporter, diag.SemaUnresolvedName, span,
			fmt.Sprintf("cannot resolve %q", a.name(data.Name))).Emit()
		return types.NoTypeID
	}
	return t
}

func (a *exprAnalyser) literal(id ast.ExprID) types.TypeID {
	data, _ := a.b.Exprs.Lit(id)
	bt := a.table.Types.Builtins()
	switch data.Kind {
	case ast.LitInt:
		return bt.Int
	case ast.LitReal:
		return bt.Real
	case ast.LitBool:
		return bt.Bool
	case ast.LitStr:
		return bt.String
	case ast.LitSymbol:
		return bt.Symbol
	}
	return types.NoTypeID
}

func (a *exprAnalyser) call(id ast.ExprID, span source.Span) types.TypeID {
	data, _ := a.b.Exprs.Call(id)
	mood := ast.MoodImperative
	if args := a.b.Args.Get(data.Args); args != nil {
		mood = args.Mood
	}

	var callee decls.FunctionID
	var found bool
	if data.Receiver.IsValid() {
		recvType := a.analyse(&data.Receiver, NoExpectation())
		cls, isClass := a.table.ClassByType(recvType)
		if !isClass {
			if recvType != types.NoTypeID {
				diag.ReportError(a.reporter, diag.SemaUnresolvedMethod, span,
					fmt.Sprintf("type %s has no methods", a.table.Types.String(recvType))).Emit()
			}
			a.analyseArgs(data.Args, nil, span, false)
			a.res.SetCall(id, CallInfo{ErrorType: a.table.NoError()})
			return types.NoTypeID
		}
		callee, found = a.table.FindMethod(cls, data.Name, mood)
	} else {
		callee, found = a.table.FindFree(data.Name, mood)
	}
	if !found {
		diag.ReportError(a.reporter, diag.SemaUnresolvedMethod, span,
			fmt.Sprintf("cannot resolve %s call %q", mood, a.name(data.Name))).Emit()
		a.analyseArgs(data.Args, nil, span, false)
		a.res.SetCall(id, CallInfo{ErrorType: a.table.NoError()})
		return types.NoTypeID
	}

	fn := a.table.Function(callee)
	a.analyseArgs(data.Args, fn.Params, span, true)
	a.res.SetCall(id, CallInfo{
		Callee:    callee,
		ErrorType: fn.Error,
		Prone:     a.table.DeclaresFailure(callee),
	})
	return fn.Return
}

func (a *exprAnalyser) callableCall(id ast.ExprID, span source.Span) types.TypeID {
	data, _ := a.b.Exprs.CallableCall(id)
	callableType := a.analyse(&data.Callable, NoExpectation())
	info, ok := a.table.Types.Callable(callableType)
	if !ok {
		if callableType != types.NoTypeID {
			diag.ReportError(a.reporter, diag.SemaNotCallable, span,
				fmt.Sprintf("cannot call a value of type %s", a.table.Types.String(callableType))).Emit()
		}
		a.analyseArgs(data.Args, nil, span, false)
		a.res.SetCall(id, CallInfo{ErrorType: a.table.NoError()})
		return types.NoTypeID
	}

	params := make([]decls.Param, len(info.Params))
	for i, p := range info.Params {
		params[i] = decls.Param{Type: p}
	}
	a.analyseArgs(data.Args, params, span, true)
	// A callable value carries no failure contract of its own; whether
	// the wrapped function can fail is the business of the site that
	// created the callable.
	a.res.SetCall(id, CallInfo{ErrorType: a.table.NoError()})
	return info.Return
}

func (a *exprAnalyser) unwrap(id ast.ExprID, span source.Span) types.TypeID {
	data, _ := a.b.Exprs.Unary(id)
	childType := a.analyse(&data.Child, NoExpectation())
	desc, ok := a.table.Types.Lookup(childType)
	if !ok || desc.Kind != types.KindOptional {
		if childType != types.NoTypeID {
			diag.ReportError(a.reporter, diag.SemaNotOptional, span,
				fmt.Sprintf("cannot unwrap non-optional type %s", a.table.Types.String(childType))).Emit()
		}
		return childType
	}
	return desc.Elem
}

func (a *exprAnalyser) condAssign(id ast.ExprID, span source.Span) types.TypeID {
	data, _ := a.b.Exprs.CondAssign(id)
	childType := a.analyse(&data.Child, NoExpectation())
	bt := a.table.Types.Builtins()

	bound := childType
	call, isCall := a.callTarget(data.Child)
	var info CallInfo
	if isCall {
		info, _ = a.res.CallAt(call)
	}
	switch {
	case isCall && info.Prone:
		if _, arranged := a.res.HandledAt(call); arranged {
			diag.ReportError(a.reporter, diag.ErrAlreadyHandled, span,
				"cannot test an expression that already re-raises its failure").Emit()
			break
		}
		// The conditional captures the failure: success flows into the
		// binding, failure selects the absent branch.
		a.res.SetHandled(call, HandleLocalCond)
	default:
		desc, ok := a.table.Types.Lookup(childType)
		if ok && desc.Kind == types.KindOptional {
			bound = desc.Elem
		} else if childType != types.NoTypeID {
			diag.ReportError(a.reporter, diag.SemaCondNotConditional, span,
				fmt.Sprintf("conditional assignment needs an optional or failable value, got %s",
					a.table.Types.String(childType))).Emit()
		}
	}

	if !a.define(data.Name, bound) {
		diag.ReportError(a.reporter, diag.SemaDuplicateVariable, span,
			fmt.Sprintf("variable %q already declared in this scope", a.name(data.Name))).Emit()
	}
	a.res.SetCondBinding(id, bound)
	return bt.Bool
}

// analyseArgs checks arity and analyses every argument under the
// matching parameter's expectation. Generic type arguments are resolved
// into the analysis result.
func (a *exprAnalyser) analyseArgs(id ast.ArgsID, params []decls.Param, span source.Span, checkArity bool) {
	list := a.b.Args.Get(id)
	if list == nil {
		return
	}
	if checkArity && len(list.Exprs) != len(params) {
		diag.ReportError(a.reporter, diag.SemaArityMismatch, span,
			fmt.Sprintf("expected %d arguments, got %d", len(params), len(list.Exprs))).Emit()
	}
	for i := range list.Exprs {
		exp := NoExpectation()
		if i < len(params) {
			exp = Expect(params[i].Type)
		}
		a.analyse(&list.Exprs[i], exp)
	}
	if len(list.GenericSyns) > 0 {
		resolved := make([]types.TypeID, len(list.GenericSyns))
		for i, syn := range list.GenericSyns {
			resolved[i] = a.resolveTypeSyn(syn)
		}
		a.res.SetGenericArgs(id, resolved)
	}
}

// coerce reconciles the produced type with the parent's expectation,
// inserting a widening wrapper over the owning slot when a subclass
// value flows into a superclass position.
func (a *exprAnalyser) coerce(slot *ast.ExprID, got types.TypeID, exp Expectation) types.TypeID {
	if exp.None() || got == exp.Type || got == types.NoTypeID || exp.Type == types.NoTypeID {
		return got
	}
	gotCls, okGot := a.table.ClassByType(got)
	expCls, okExp := a.table.ClassByType(exp.Type)
	if okGot && okExp && a.table.IsSubclassOf(gotCls, expCls) {
		wrapper := a.b.Exprs.WrapUpcast(slot, exp.Type)
		a.res.registerExpr(a.fn, wrapper)
		a.res.SetExprType(wrapper, exp.Type)
		return exp.Type
	}
	sp := source.Span{}
	if e := a.b.Exprs.Get(*slot); e != nil {
		sp = e.Span
	}
	diag.ReportError(a.reporter, diag.SemaTypeMismatch, sp,
		fmt.Sprintf("expected %s, got %s", a.table.Types.String(exp.Type), a.table.Types.String(got))).Emit()
	// Substitute the expected type so analysis of the enclosing function
	// can continue and surface further errors.
	return exp.Type
}

// resolveTypeSyn resolves a syntactic type reference: classes first, then
// the built-in value types by their canonical names.
func (a *exprAnalyser) resolveTypeSyn(id ast.TypeSynID) types.TypeID {
	syn := a.b.TypeSyns.Get(id)
	if syn == nil {
		return types.NoTypeID
	}
	base := types.NoTypeID
	if cls, ok := a.table.FindClass(syn.Name); ok {
		base = a.table.Class(cls).Type
	} else if t, ok := a.builtinByName(syn.Name); ok {
		base = t
	} else {
		diag.ReportError(a.reporter, diag.SemaUnresolvedType, syn.Span,
			fmt.Sprintf("unknown type %q", a.name(syn.Name))).Emit()
		return types.NoTypeID
	}
	if syn.Optional {
		base = a.table.Types.Intern(types.MakeOptional(base))
	}
	a.res.SetSynType(id, base)
	return base
}

func (a *exprAnalyser) builtinByName(name source.StringID) (types.TypeID, bool) {
	bt := a.table.Types.Builtins()
	switch a.name(name) {
	case "Int":
		return bt.Int, true
	case "Real":
		return bt.Real, true
	case "Bool":
		return bt.Bool, true
	case "Byte":
		return bt.Byte, true
	case "Symbol":
		return bt.Symbol, true
	case "String":
		return bt.String, true
	}
	return types.NoTypeID, false
}

// callTarget strips forwarding wrappers off id and returns the
// call-shaped node underneath, if any.
func (a *exprAnalyser) callTarget(id ast.ExprID) (ast.ExprID, bool) {
	cur := id
	for {
		e := a.b.Exprs.Get(cur)
		if e == nil {
			return ast.NoExprID, false
		}
		if e.Kind.IsCallShaped() {
			return cur, true
		}
		child, ok := a.b.Exprs.ForwardedChild(cur)
		if !ok {
			return ast.NoExprID, false
		}
		cur = child
	}
}
