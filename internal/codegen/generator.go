// Package codegen lowers analysed function bodies into a linear
// instruction form. It consumes the side tables produced by semantic
// analysis; a body with unresolved analysis state is a generation
// fault, never a user diagnostic.
package codegen

import (
	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/ice"
	"ember/internal/sema"
	"ember/internal/source"
	"ember/internal/types"
)

// Generator lowers one function at a time.
type Generator struct {
	b     *ast.Builder
	table *decls.Table
	res   *sema.Result

	fn     decls.FunctionID
	f      *Func
	scopes []*genScope

	// pendingErr is the pre-allocated slot the next locally handled
	// call writes its failure into.
	pendingErr ValueID
}

// genScope tracks one lexical scope: its variable slots and the
// temporaries that must be released when the scope ends.
type genScope struct {
	vars  map[source.StringID]LocalID
	temps []ValueID
}

func NewGenerator(b *ast.Builder, table *decls.Table, res *sema.Result) *Generator {
	return &Generator{b: b, table: table, res: res}
}

// GenerateAll lowers every function with a body, in declaration order.
func GenerateAll(b *ast.Builder, table *decls.Table, res *sema.Result) ([]*Func, error) {
	g := NewGenerator(b, table, res)
	var out []*Func
	for _, fn := range table.Functions() {
		if !table.Function(fn).Body.IsValid() {
			continue
		}
		f, err := g.Generate(fn)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Generate lowers a single function body.
func (g *Generator) Generate(fn decls.FunctionID) (*Func, error) {
	decl := g.table.Function(fn)
	g.fn = fn
	g.f = &Func{
		Name:   decl.Name,
		Fn:     fn,
		Locals: make([]Local, 1), // index 0 reserved for NoLocalID
	}
	g.scopes = g.scopes[:0]
	g.pendingErr = NoValueID

	if g.res.FnErrorProne(g.table, fn) {
		g.f.ErrOut = g.newValue()
	}

	g.pushScope()
	for _, p := range decl.Params {
		g.defineLocal(p.Name, p.Type)
	}
	if err := g.stmt(decl.Body); err != nil {
		return nil, err
	}
	g.emitScopeReleases(g.scopes[len(g.scopes)-1])
	g.popScope()
	g.emit(Instr{Kind: OpReturn})
	return g.f, nil
}

// Emission helpers -----------------------------------------------------------

func (g *Generator) newValue() ValueID {
	g.f.numValues++
	return ValueID(g.f.numValues)
}

func (g *Generator) emit(in Instr) int {
	g.f.Instrs = append(g.f.Instrs, in)
	return len(g.f.Instrs) - 1
}

func (g *Generator) patch(at int) {
	g.f.Instrs[at].Jump.Target = len(g.f.Instrs)
}

func (g *Generator) pushScope() {
	g.scopes = append(g.scopes, &genScope{vars: make(map[source.StringID]LocalID)})
}

func (g *Generator) popScope() {
	g.scopes = g.scopes[:len(g.scopes)-1]
}

func (g *Generator) defineLocal(name source.StringID, t types.TypeID) LocalID {
	id := LocalID(len(g.f.Locals))
	g.f.Locals = append(g.f.Locals, Local{Name: name, Type: t})
	g.scopes[len(g.scopes)-1].vars[name] = id
	return id
}

func (g *Generator) lookupLocal(name source.StringID) (LocalID, bool) {
	for i := len(g.scopes) - 1; i >= 0; i-- {
		if id, ok := g.scopes[i].vars[name]; ok {
			return id, true
		}
	}
	return NoLocalID, false
}

// emitScopeReleases releases a scope's temporaries in reverse
// registration order. It does not consume them; branching constructs
// emit the same cleanup on every exit path.
func (g *Generator) emitScopeReleases(s *genScope) {
	for i := len(s.temps) - 1; i >= 0; i-- {
		g.emit(Instr{Kind: OpRelease, Ref: RefInstr{Src: s.temps[i]}})
	}
}

// handleResult registers a freshly produced value for release at scope
// end. Values taken by their context, borrowed variable loads and
// ownership-forwarding wrappers are not registered; the wrapped
// producer already was.
func (g *Generator) handleResult(id ast.ExprID, val ValueID) {
	e := g.b.Exprs.Get(id)
	if e == nil || e.Kind.ForwardsOwnership() || e.Kind == ast.ExprIdent {
		return
	}
	if !g.res.ProducesTemporaryObject(id) {
		return
	}
	top := g.scopes[len(g.scopes)-1]
	top.temps = append(top.temps, val)
}

// Statements -----------------------------------------------------------------

func (g *Generator) stmt(id ast.StmtID) error {
	s := g.b.Stmts.Get(id)
	if s == nil {
		return ice.Errorf("statement %d missing from arena", id)
	}
	switch s.Kind {
	case ast.StmtBlock:
		data, _ := g.b.Stmts.Block(id)
		g.pushScope()
		for _, sub := range data.Stmts {
			if err := g.stmt(sub); err != nil {
				return err
			}
		}
		g.emitScopeReleases(g.scopes[len(g.scopes)-1])
		g.popScope()
		return nil
	case ast.StmtExpr:
		data, _ := g.b.Stmts.Expr(id)
		_, err := g.expr(data.Expr)
		return err
	case ast.StmtLet:
		return g.letStmt(id)
	case ast.StmtAssign:
		data, _ := g.b.Stmts.Assign(id)
		slot, ok := g.lookupLocal(data.Name)
		if !ok {
			return ice.Errorf("assignment to unknown variable %d", data.Name)
		}
		val, err := g.expr(data.Value)
		if err != nil {
			return err
		}
		g.emit(Instr{Kind: OpStoreVar, StoreVar: StoreVarInstr{Slot: slot, Src: val}})
		return nil
	case ast.StmtReturn:
		return g.returnStmt(id)
	case ast.StmtIf:
		return g.ifStmt(id)
	}
	return ice.Errorf("statement %d has unknown kind %d", id, s.Kind)
}

func (g *Generator) letStmt(id ast.StmtID) error {
	data, _ := g.b.Stmts.Let(id)
	if data.Try {
		call, ok := g.callTarget(data.Init)
		if !ok {
			return ice.Errorf("try binding %d has no call underneath", id)
		}
		info, _ := g.res.CallAt(call)
		errSlot := g.newValue()
		g.emit(Instr{Kind: OpAllocErr, AllocErr: AllocErrInstr{Dst: errSlot, Type: info.ErrorType}})
		g.pendingErr = errSlot
	}
	val, err := g.expr(data.Init)
	if err != nil {
		return err
	}
	t, terr := g.res.MustExprType(data.Init)
	if terr != nil {
		return terr
	}
	slot := g.defineLocal(data.Name, t)
	g.emit(Instr{Kind: OpStoreVar, StoreVar: StoreVarInstr{Slot: slot, Src: val}})
	return nil
}

func (g *Generator) returnStmt(id ast.StmtID) error {
	data, _ := g.b.Stmts.Return(id)
	ret := NoValueID
	if data.Value.IsValid() {
		val, err := g.expr(data.Value)
		if err != nil {
			return err
		}
		ret = val
	}
	// The returned value was taken, so it is not among the temporaries.
	for i := len(g.scopes) - 1; i >= 0; i-- {
		g.emitScopeReleases(g.scopes[i])
	}
	g.emit(Instr{Kind: OpReturn, Return: ReturnInstr{Src: ret}})
	return nil
}

func (g *Generator) ifStmt(id ast.StmtID) error {
	data, _ := g.b.Stmts.If(id)
	// The condition's scope covers the then-branch, matching analysis:
	// a conditional binding is visible there and nowhere else.
	g.pushScope()
	cond, err := g.expr(data.Cond)
	if err != nil {
		return err
	}
	toElse := g.emit(Instr{Kind: OpJumpIfFalse, Jump: JumpInstr{Cond: cond}})
	if err := g.stmt(data.Then); err != nil {
		return err
	}
	g.emitScopeReleases(g.scopes[len(g.scopes)-1])
	// Both exits carry their own copy of the condition-scope cleanup, so
	// the true path must jump over the false-path copy even without an
	// else branch.
	toEnd := g.emit(Instr{Kind: OpJump})
	g.patch(toElse)
	g.emitScopeReleases(g.scopes[len(g.scopes)-1])
	g.popScope()
	if data.Else.IsValid() {
		if err := g.stmt(data.Else); err != nil {
			return err
		}
	}
	g.patch(toEnd)
	return nil
}

// Expressions ----------------------------------------------------------------

func (g *Generator) expr(id ast.ExprID) (ValueID, error) {
	e := g.b.Exprs.Get(id)
	if e == nil {
		return NoValueID, ice.Errorf("expression %d missing from arena", id)
	}

	var val ValueID
	var err error
	switch e.Kind {
	case ast.ExprIdent:
		val, err = g.ident(id)
	case ast.ExprLit:
		val, err = g.literal(id)
	case ast.ExprCall, ast.ExprSuper:
		val, err = g.call(id, e.Kind)
	case ast.ExprCallableCall:
		val, err = g.callableCall(id)
	case ast.ExprTypeAsValue:
		data, _ := g.b.Exprs.TypeAsValue(id)
		val = g.newValue()
		t, _ := g.res.SynType(data.Type)
		g.emit(Instr{Kind: OpTypeValue, TypeValue: TypeValueInstr{Dst: val, Type: t}})
	case ast.ExprSizeOf:
		data, _ := g.b.Exprs.SizeOf(id)
		val = g.newValue()
		t, _ := g.res.SynType(data.Type)
		g.emit(Instr{Kind: OpSizeOf, SizeOf: SizeOfInstr{Dst: val, Type: t}})
	case ast.ExprCondAssign:
		val, err = g.condAssign(id)
	case ast.ExprGroup, ast.ExprPropagate:
		data, _ := g.b.Exprs.Unary(id)
		val, err = g.expr(data.Child)
	case ast.ExprUnwrap:
		data, _ := g.b.Exprs.Unary(id)
		var child ValueID
		child, err = g.expr(data.Child)
		if err == nil {
			val = g.newValue()
			g.emit(Instr{Kind: OpUnwrap, Unwrap: UnwrapInstr{Dst: val, Src: child}})
		}
	case ast.ExprUpcast:
		data, _ := g.b.Exprs.Upcast(id)
		var child ValueID
		child, err = g.expr(data.Child)
		if err == nil {
			val = g.newValue()
			g.emit(Instr{Kind: OpUpcast, Upcast: UpcastInstr{Dst: val, Src: child, Target: data.Target}})
		}
	default:
		return NoValueID, ice.Errorf("expression %d has unknown kind %d", id, e.Kind)
	}
	if err != nil {
		return NoValueID, err
	}
	g.handleResult(id, val)
	return val, nil
}

func (g *Generator) ident(id ast.ExprID) (ValueID, error) {
	data, _ := g.b.Exprs.Ident(id)
	slot, ok := g.lookupLocal(data.Name)
	if !ok {
		return NoValueID, ice.Errorf("unresolved variable %d survived analysis", data.Name)
	}
	val := g.newValue()
	g.emit(Instr{Kind: OpLoadVar, LoadVar: LoadVarInstr{Dst: val, Slot: slot}})
	// A load borrows from the variable. When the context takes the
	// value, the variable must keep its own reference.
	t, err := g.res.MustExprType(id)
	if err != nil {
		return NoValueID, err
	}
	if g.res.Types.IsManaged(t) && !g.res.IsTemporary(id) {
		g.emit(Instr{Kind: OpRetain, Ref: RefInstr{Src: val}})
	}
	return val, nil
}

func (g *Generator) literal(id ast.ExprID) (ValueID, error) {
	data, _ := g.b.Exprs.Lit(id)
	t, err := g.res.MustExprType(id)
	if err != nil {
		return NoValueID, err
	}
	val := g.newValue()
	g.emit(Instr{Kind: OpLit, Lit: LitInstr{Dst: val, Lit: data.Kind, Value: data.Value, Type: t}})
	return val, nil
}

// call lowers resolved calls and super calls, wiring the failure slot
// according to the handling analysis decided on.
func (g *Generator) call(id ast.ExprID, kind ast.ExprKind) (ValueID, error) {
	var recv ast.ExprID
	var argsID ast.ArgsID
	if kind == ast.ExprSuper {
		data, _ := g.b.Exprs.Super(id)
		argsID = data.Args
	} else {
		data, _ := g.b.Exprs.Call(id)
		recv = data.Receiver
		argsID = data.Args
	}

	info, ok := g.res.CallAt(id)
	if !ok {
		return NoValueID, ice.Errorf("call %d has no resolved contract", id)
	}

	var args []ValueID
	if recv.IsValid() {
		r, err := g.expr(recv)
		if err != nil {
			return NoValueID, err
		}
		args = append(args, r)
	}
	if list := g.b.Args.Get(argsID); list != nil {
		for _, arg := range list.Exprs {
			v, err := g.expr(arg)
			if err != nil {
				return NoValueID, err
			}
			args = append(args, v)
		}
	}

	errDest := NoValueID
	propagate := false
	if info.Prone {
		h, handled := g.res.HandledAt(id)
		if !handled {
			return NoValueID, ice.Errorf("error-prone call %d reached generation unhandled", id)
		}
		switch h {
		case sema.HandleLocal, sema.HandleLocalCond:
			if !g.pendingErr.IsValid() {
				return NoValueID, ice.Errorf("locally handled call %d has no error slot", id)
			}
			errDest = g.pendingErr
			g.pendingErr = NoValueID
		case sema.HandlePropagate:
			if !g.f.ErrOut.IsValid() {
				return NoValueID, ice.Errorf("propagating call %d in a function without a failure path", id)
			}
			errDest = g.f.ErrOut
			propagate = true
		}
	}

	val := g.newValue()
	op := OpCall
	if kind == ast.ExprSuper {
		op = OpSuperCall
	}
	g.emit(Instr{Kind: op, Call: CallInstr{
		Dst:     val,
		Callee:  info.Callee,
		Args:    args,
		ErrDest: errDest,
	}})
	if propagate {
		g.emit(Instr{Kind: OpPropagateErr, PropErr: PropagateErrInstr{Err: errDest}})
	}
	return val, nil
}

func (g *Generator) callableCall(id ast.ExprID) (ValueID, error) {
	data, _ := g.b.Exprs.CallableCall(id)
	callable, err := g.expr(data.Callable)
	if err != nil {
		return NoValueID, err
	}
	var args []ValueID
	if list := g.b.Args.Get(data.Args); list != nil {
		for _, arg := range list.Exprs {
			v, aerr := g.expr(arg)
			if aerr != nil {
				return NoValueID, aerr
			}
			args = append(args, v)
		}
	}
	val := g.newValue()
	g.emit(Instr{Kind: OpCallableCall, Call: CallInstr{
		Dst:      val,
		Callable: callable,
		Args:     args,
	}})
	return val, nil
}

// condAssign lowers a conditional binding into a presence test plus a
// store of the extracted value.
func (g *Generator) condAssign(id ast.ExprID) (ValueID, error) {
	data, _ := g.b.Exprs.CondAssign(id)

	call, isCall := g.callTarget(data.Child)
	var info sema.CallInfo
	if isCall {
		info, _ = g.res.CallAt(call)
	}

	failable := false
	var errSlot ValueID
	if isCall && info.Prone {
		if h, ok := g.res.HandledAt(call); ok && h == sema.HandleLocalCond {
			failable = true
			errSlot = g.newValue()
			g.emit(Instr{Kind: OpAllocErr, AllocErr: AllocErrInstr{Dst: errSlot, Type: info.ErrorType}})
			g.pendingErr = errSlot
		}
	}

	child, err := g.expr(data.Child)
	if err != nil {
		return NoValueID, err
	}

	cond := g.newValue()
	if failable {
		g.emit(Instr{Kind: OpErrTest, ErrTest: ErrTestInstr{Dst: cond, Err: errSlot}})
	} else {
		g.emit(Instr{Kind: OpHasValue, HasValue: HasValueInstr{Dst: cond, Src: child}})
	}

	bt, ok := g.res.CondBinding(id)
	if !ok {
		return NoValueID, ice.Errorf("conditional assignment %d has no binding type", id)
	}
	slot := g.defineLocal(data.Name, bt)

	// Extraction and binding run only on the present branch; an absent
	// optional must never be unwrapped.
	skip := g.emit(Instr{Kind: OpJumpIfFalse, Jump: JumpInstr{Cond: cond}})
	bound := child
	if !failable {
		bound = g.newValue()
		g.emit(Instr{Kind: OpUnwrap, Unwrap: UnwrapInstr{Dst: bound, Src: child}})
	}
	g.emit(Instr{Kind: OpStoreVar, StoreVar: StoreVarInstr{Slot: slot, Src: bound}})
	g.patch(skip)
	return cond, nil
}

// callTarget strips forwarding wrappers off id and returns the
// call-shaped node underneath, if any.
func (g *Generator) callTarget(id ast.ExprID) (ast.ExprID, bool) {
	cur := id
	for {
		e := g.b.Exprs.Get(cur)
		if e == nil {
			return ast.NoExprID, false
		}
		if e.Kind.IsCallShaped() {
			return cur, true
		}
		child, ok := g.b.Exprs.ForwardedChild(cur)
		if !ok {
			return ast.NoExprID, false
		}
		cur = child
	}
}
