package sema

import (
	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/ice"
	"ember/internal/types"
)

// CallInfo records the resolved failure contract of a call-shaped
// expression. ErrorType is the no-return sentinel when the callee
// cannot fail.
type CallInfo struct {
	Callee    decls.FunctionID
	ErrorType types.TypeID
	Prone     bool
	SuperInit bool
}

// Handling states how an error-prone call's failure path is dealt with.
type Handling uint8

const (
	// HandleLocal: an enclosing statement captures the error into its
	// own destination slot (let-try).
	HandleLocal Handling = iota + 1
	// HandleLocalCond: a conditional assignment captures the error and
	// turns failure into the absent branch.
	HandleLocalCond
	// HandlePropagate: the failure is re-raised through the enclosing
	// function's own error path.
	HandlePropagate
)

// Result stores the artefacts of both analysis passes. All per-node
// state is kept in write-once side tables; a second write to the same
// node is an internal invariant violation, never silently absorbed.
type Result struct {
	Types *types.Interner

	exprTypes   map[ast.ExprID]types.TypeID
	taken       map[ast.ExprID]bool // presence means isTemporary was cleared
	calls       map[ast.ExprID]CallInfo
	handled     map[ast.ExprID]Handling
	fnProne     map[decls.FunctionID]bool // managed error-proneness
	genericArgs map[ast.ArgsID][]types.TypeID
	condTypes   map[ast.ExprID]types.TypeID   // bound-variable type per cond-assign
	synTypes    map[ast.TypeSynID]types.TypeID // resolved syntactic type references

	// fnExprs records, per function, every expression visited by type
	// analysis in visit order. Memory-flow analysis verifies against it
	// that each managed-type node is flow-analysed exactly once.
	fnExprs map[decls.FunctionID][]ast.ExprID

	internal []error
}

func NewResult(interner *types.Interner) *Result {
	return &Result{
		Types:       interner,
		exprTypes:   make(map[ast.ExprID]types.TypeID),
		taken:       make(map[ast.ExprID]bool),
		calls:       make(map[ast.ExprID]CallInfo),
		handled:     make(map[ast.ExprID]Handling),
		fnProne:     make(map[decls.FunctionID]bool),
		genericArgs: make(map[ast.ArgsID][]types.TypeID),
		condTypes:   make(map[ast.ExprID]types.TypeID),
		synTypes:    make(map[ast.TypeSynID]types.TypeID),
		fnExprs:     make(map[decls.FunctionID][]ast.ExprID),
	}
}

func (r *Result) fault(err error) {
	r.internal = append(r.internal, err)
}

// Internal returns the internal invariant violations detected so far.
// A non-empty slice means the compilation unit must be aborted.
func (r *Result) Internal() []error {
	return r.internal
}

// SetExprType records the result type of an expression. Write-once.
func (r *Result) SetExprType(id ast.ExprID, t types.TypeID) {
	if _, dup := r.exprTypes[id]; dup {
		r.fault(ice.Errorf("expression %d type set twice", id))
		return
	}
	r.exprTypes[id] = t
}

// ExprType returns the type assigned during type analysis.
func (r *Result) ExprType(id ast.ExprID) (types.TypeID, bool) {
	t, ok := r.exprTypes[id]
	return t, ok
}

// MustExprType reads a type that type analysis is required to have
// resolved already. Reading before the pass ran is a compiler bug.
func (r *Result) MustExprType(id ast.ExprID) (types.TypeID, error) {
	t, ok := r.exprTypes[id]
	if !ok {
		return types.NoTypeID, ice.Errorf("expression %d type read before type analysis", id)
	}
	return t, nil
}

// ClearTemporary flips a node's temporary flag to false. The transition
// is legal at most once per node, and only the memory-flow pass calls it.
func (r *Result) ClearTemporary(id ast.ExprID) error {
	if r.taken[id] {
		return ice.Errorf("expression %d taken twice", id)
	}
	r.taken[id] = true
	return nil
}

// IsTemporary reports whether the node still owns its result. Valid only
// after memory-flow analysis.
func (r *Result) IsTemporary(id ast.ExprID) bool {
	return !r.taken[id]
}

// ProducesTemporaryObject reports whether code generation must register
// the node's value for release.
func (r *Result) ProducesTemporaryObject(id ast.ExprID) bool {
	t, ok := r.exprTypes[id]
	return ok && r.Types.IsManaged(t) && r.IsTemporary(id)
}

// SetCall records a call's resolved failure contract. Write-once.
func (r *Result) SetCall(id ast.ExprID, info CallInfo) {
	if _, dup := r.calls[id]; dup {
		r.fault(ice.Errorf("call %d contract resolved twice", id))
		return
	}
	r.calls[id] = info
}

func (r *Result) CallAt(id ast.ExprID) (CallInfo, bool) {
	info, ok := r.calls[id]
	return info, ok
}

// SetHandled records that a call's failure path is arranged for. Set at
// most once per call.
func (r *Result) SetHandled(id ast.ExprID, h Handling) {
	if _, dup := r.handled[id]; dup {
		r.fault(ice.Errorf("call %d error handling arranged twice", id))
		return
	}
	r.handled[id] = h
}

func (r *Result) HandledAt(id ast.ExprID) (Handling, bool) {
	h, ok := r.handled[id]
	return h, ok
}

// MarkFnErrorProne records managed error-proneness: the function did not
// declare a failure path but must behave as if it did.
func (r *Result) MarkFnErrorProne(fn decls.FunctionID) {
	r.fnProne[fn] = true
}

// FnErrorProne reports effective error-proneness of a function given its
// declaration table.
func (r *Result) FnErrorProne(table *decls.Table, fn decls.FunctionID) bool {
	return table.DeclaresFailure(fn) || r.fnProne[fn]
}

// SetGenericArgs stores the resolved generic argument types of an
// argument list. Write-once.
func (r *Result) SetGenericArgs(id ast.ArgsID, resolved []types.TypeID) {
	if _, dup := r.genericArgs[id]; dup {
		r.fault(ice.Errorf("argument list %d generic types resolved twice", id))
		return
	}
	r.genericArgs[id] = resolved
}

func (r *Result) GenericArgs(id ast.ArgsID) ([]types.TypeID, bool) {
	g, ok := r.genericArgs[id]
	return g, ok
}

// SetCondBinding stores the unwrapped type a conditional assignment
// binds its variable to.
func (r *Result) SetCondBinding(id ast.ExprID, t types.TypeID) {
	if _, dup := r.condTypes[id]; dup {
		r.fault(ice.Errorf("conditional assignment %d bound twice", id))
		return
	}
	r.condTypes[id] = t
}

func (r *Result) CondBinding(id ast.ExprID) (types.TypeID, bool) {
	t, ok := r.condTypes[id]
	return t, ok
}

// SetSynType records what a syntactic type reference resolved to, so
// later stages need not redo name resolution.
func (r *Result) SetSynType(id ast.TypeSynID, t types.TypeID) {
	r.synTypes[id] = t
}

func (r *Result) SynType(id ast.TypeSynID) (types.TypeID, bool) {
	t, ok := r.synTypes[id]
	return t, ok
}

func (r *Result) registerExpr(fn decls.FunctionID, id ast.ExprID) {
	r.fnExprs[fn] = append(r.fnExprs[fn], id)
}

// FunctionExprs returns every expression of fn in type-analysis order.
func (r *Result) FunctionExprs(fn decls.FunctionID) []ast.ExprID {
	return r.fnExprs[fn]
}
