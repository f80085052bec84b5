package sema

import (
	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/ice"
)

// FlowCategory describes what the surrounding context does with the
// value an expression produces.
type FlowCategory uint8

const (
	// FlowDiscard drops the value of an expression statement.
	FlowDiscard FlowCategory = iota
	// FlowBorrow observes the value without keeping it past the
	// enclosing expression: receivers, conditions, non-escaping
	// arguments.
	FlowBorrow
	// FlowBind moves the value into a fresh variable binding.
	FlowBind
	// FlowStore moves the value into an existing variable.
	FlowStore
	// FlowArgEscape moves the value into a callee that keeps it.
	FlowArgEscape
	// FlowReturn moves the value out of the function.
	FlowReturn
)

// Takes reports whether the context assumes ownership of the value.
func (c FlowCategory) Takes() bool { return c >= FlowBind }

// flowAnalyser runs memory-flow analysis over one function body. It
// decides, per expression, whether the produced value stays a temporary
// (released at the end of its scope) or is taken by its context.
type flowAnalyser struct {
	b      *ast.Builder
	table  *decls.Table
	res    *Result
	fn     decls.FunctionID
	visits map[ast.ExprID]int
}

func (f *flowAnalyser) run() {
	fn := f.table.Function(f.fn)
	if fn.Body.IsValid() {
		f.stmt(fn.Body)
	}

	// Every managed-value expression must have been flowed through
	// exactly once; a miss or a revisit means the walk and the tree
	// disagree.
	for _, id := range f.res.FunctionExprs(f.fn) {
		t, ok := f.res.ExprType(id)
		if !ok || !f.res.Types.IsManaged(t) {
			continue
		}
		if n := f.visits[id]; n != 1 {
			f.res.fault(ice.Errorf("expression %d flowed %d times", id, n))
		}
	}
}

func (f *flowAnalyser) stmt(id ast.StmtID) {
	s := f.b.Stmts.Get(id)
	if s == nil {
		f.res.fault(ice.Errorf("statement %d missing from arena", id))
		return
	}
	switch s.Kind {
	case ast.StmtBlock:
		data, _ := f.b.Stmts.Block(id)
		for _, child := range data.Stmts {
			f.stmt(child)
		}
	case ast.StmtExpr:
		data, _ := f.b.Stmts.Expr(id)
		f.expr(data.Expr, FlowDiscard)
	case ast.StmtLet:
		data, _ := f.b.Stmts.Let(id)
		f.take(data.Init)
		f.expr(data.Init, FlowBind)
	case ast.StmtAssign:
		data, _ := f.b.Stmts.Assign(id)
		f.take(data.Value)
		f.expr(data.Value, FlowStore)
	case ast.StmtReturn:
		data, _ := f.b.Stmts.Return(id)
		if data.Value.IsValid() {
			f.take(data.Value)
			f.expr(data.Value, FlowReturn)
		}
	case ast.StmtIf:
		data, _ := f.b.Stmts.If(id)
		f.expr(data.Cond, FlowBorrow)
		f.stmt(data.Then)
		if data.Else.IsValid() {
			f.stmt(data.Else)
		}
	}
}

// expr walks one expression under the given category. The category
// never clears flags here; taking contexts call take separately, so a
// value forwarded through wrappers is cleared along the whole chain.
func (f *flowAnalyser) expr(id ast.ExprID, cat FlowCategory) {
	e := f.b.Exprs.Get(id)
	if e == nil {
		f.res.fault(ice.Errorf("expression %d missing from arena", id))
		return
	}
	f.visits[id]++

	switch e.Kind {
	case ast.ExprIdent, ast.ExprLit, ast.ExprTypeAsValue, ast.ExprSizeOf:
		// Leaves.
	case ast.ExprCall:
		data, _ := f.b.Exprs.Call(id)
		if data.Receiver.IsValid() {
			f.expr(data.Receiver, FlowBorrow)
		}
		f.callArgs(id, data.Args)
	case ast.ExprCallableCall:
		data, _ := f.b.Exprs.CallableCall(id)
		f.expr(data.Callable, FlowBorrow)
		f.callArgs(id, data.Args)
	case ast.ExprSuper:
		data, _ := f.b.Exprs.Super(id)
		f.callArgs(id, data.Args)
	case ast.ExprCondAssign:
		data, _ := f.b.Exprs.CondAssign(id)
		f.take(data.Child)
		f.expr(data.Child, FlowBind)
	case ast.ExprGroup, ast.ExprUnwrap, ast.ExprPropagate, ast.ExprUpcast:
		child, _ := f.b.Exprs.ForwardedChild(id)
		f.expr(child, cat)
	default:
		f.res.fault(ice.Errorf("expression %d has unknown kind %d", id, e.Kind))
	}
}

// callArgs flows a call's arguments. Arguments bound to escaping
// parameters are taken by the callee; all others are borrowed for the
// duration of the call.
func (f *flowAnalyser) callArgs(call ast.ExprID, argsID ast.ArgsID) {
	args := f.b.Args.Get(argsID)
	if args == nil {
		return
	}
	var params []decls.Param
	if info, ok := f.res.CallAt(call); ok && info.Callee.IsValid() {
		params = f.table.Function(info.Callee).Params
	}
	for i, arg := range args.Exprs {
		if i < len(params) && params[i].Escaping {
			f.take(arg)
			f.expr(arg, FlowArgEscape)
			continue
		}
		f.expr(arg, FlowBorrow)
	}
}

// take marks the expression's value as claimed by its context. Wrappers
// forward ownership, so taking a wrapper takes the wrapped value too;
// the wrapper itself then has nothing left to release.
func (f *flowAnalyser) take(id ast.ExprID) {
	if err := f.res.ClearTemporary(id); err != nil {
		f.res.fault(err)
		return
	}
	if child, ok := f.b.Exprs.ForwardedChild(id); ok {
		f.take(child)
	}
}
