package ast

import (
	"ember/internal/source"
	"ember/internal/types"
)

// Per-kind payload records.

type ExprIdentData struct {
	Name source.StringID
}

type ExprLitData struct {
	Kind  LitKind
	Value source.StringID
}

// ExprCallData is a method or free-function call. Receiver is NoExprID
// for free functions.
type ExprCallData struct {
	Receiver ExprID
	Name     source.StringID
	Args     ArgsID
}

type ExprCallableCallData struct {
	Callable ExprID
	Args     ArgsID
}

type ExprSuperData struct {
	Name source.StringID
	Args ArgsID
}

type ExprTypeAsValueData struct {
	Type TypeSynID
}

type ExprSizeOfData struct {
	Type TypeSynID
}

type ExprCondAssignData struct {
	Name  source.StringID
	Child ExprID
}

// ExprUnaryData backs every plain forwarding wrapper (group, unwrap,
// propagate).
type ExprUnaryData struct {
	Child ExprID
}

type ExprUpcastData struct {
	Child  ExprID
	Target types.TypeID
}

// Exprs manages allocation of expressions.
type Exprs struct {
	Arena         *Arena[Expr]
	Idents        *Arena[ExprIdentData]
	Literals      *Arena[ExprLitData]
	Calls         *Arena[ExprCallData]
	CallableCalls *Arena[ExprCallableCallData]
	Supers        *Arena[ExprSuperData]
	TypeValues    *Arena[ExprTypeAsValueData]
	SizeOfs       *Arena[ExprSizeOfData]
	CondAssigns   *Arena[ExprCondAssignData]
	Unaries       *Arena[ExprUnaryData]
	Upcasts       *Arena[ExprUpcastData]
}

func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Exprs{
		Arena:         NewArena[Expr](capHint),
		Idents:        NewArena[ExprIdentData](capHint),
		Literals:      NewArena[ExprLitData](capHint),
		Calls:         NewArena[ExprCallData](capHint),
		CallableCalls: NewArena[ExprCallableCallData](capHint),
		Supers:        NewArena[ExprSuperData](capHint),
		TypeValues:    NewArena[ExprTypeAsValueData](capHint),
		SizeOfs:       NewArena[ExprSizeOfData](capHint),
		CondAssigns:   NewArena[ExprCondAssignData](capHint),
		Unaries:       NewArena[ExprUnaryData](capHint),
		Upcasts:       NewArena[ExprUpcastData](capHint),
	}
}

func (e *Exprs) new(kind ExprKind, span source.Span, payload PayloadID) ExprID {
	return ExprID(e.Arena.Allocate(Expr{
		Kind:    kind,
		Span:    span,
		Payload: payload,
	}))
}

// Get returns the expression with the given ID.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

func (e *Exprs) NewIdent(span source.Span, name source.StringID) ExprID {
	payload := e.Idents.Allocate(ExprIdentData{Name: name})
	return e.new(ExprIdent, span, PayloadID(payload))
}

func (e *Exprs) Ident(id ExprID) (*ExprIdentData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprIdent {
		return nil, false
	}
	return e.Idents.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewLit(span source.Span, kind LitKind, value source.StringID) ExprID {
	payload := e.Literals.Allocate(ExprLitData{Kind: kind, Value: value})
	return e.new(ExprLit, span, PayloadID(payload))
}

func (e *Exprs) Lit(id ExprID) (*ExprLitData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprLit {
		return nil, false
	}
	return e.Literals.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewCall(span source.Span, receiver ExprID, name source.StringID, args ArgsID) ExprID {
	payload := e.Calls.Allocate(ExprCallData{Receiver: receiver, Name: name, Args: args})
	return e.new(ExprCall, span, PayloadID(payload))
}

func (e *Exprs) Call(id ExprID) (*ExprCallData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprCall {
		return nil, false
	}
	return e.Calls.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewCallableCall(span source.Span, callable ExprID, args ArgsID) ExprID {
	payload := e.CallableCalls.Allocate(ExprCallableCallData{Callable: callable, Args: args})
	return e.new(ExprCallableCall, span, PayloadID(payload))
}

func (e *Exprs) CallableCall(id ExprID) (*ExprCallableCallData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprCallableCall {
		return nil, false
	}
	return e.CallableCalls.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewSuper(span source.Span, name source.StringID, args ArgsID) ExprID {
	payload := e.Supers.Allocate(ExprSuperData{Name: name, Args: args})
	return e.new(ExprSuper, span, PayloadID(payload))
}

func (e *Exprs) Super(id ExprID) (*ExprSuperData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprSuper {
		return nil, false
	}
	return e.Supers.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewTypeAsValue(span source.Span, syn TypeSynID) ExprID {
	payload := e.TypeValues.Allocate(ExprTypeAsValueData{Type: syn})
	return e.new(ExprTypeAsValue, span, PayloadID(payload))
}

func (e *Exprs) TypeAsValue(id ExprID) (*ExprTypeAsValueData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprTypeAsValue {
		return nil, false
	}
	return e.TypeValues.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewSizeOf(span source.Span, syn TypeSynID) ExprID {
	payload := e.SizeOfs.Allocate(ExprSizeOfData{Type: syn})
	return e.new(ExprSizeOf, span, PayloadID(payload))
}

func (e *Exprs) SizeOf(id ExprID) (*ExprSizeOfData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprSizeOf {
		return nil, false
	}
	return e.SizeOfs.Get(uint32(expr.Payload)), true
}

func (e *Exprs) NewCondAssign(span source.Span, name source.StringID, child ExprID) ExprID {
	payload := e.CondAssigns.Allocate(ExprCondAssignData{Name: name, Child: child})
	return e.new(ExprCondAssign, span, PayloadID(payload))
}

func (e *Exprs) CondAssign(id ExprID) (*ExprCondAssignData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprCondAssign {
		return nil, false
	}
	return e.CondAssigns.Get(uint32(expr.Payload)), true
}

func (e *Exprs) newUnary(kind ExprKind, span source.Span, child ExprID) ExprID {
	payload := e.Unaries.Allocate(ExprUnaryData{Child: child})
	return e.new(kind, span, PayloadID(payload))
}

func (e *Exprs) NewGroup(span source.Span, child ExprID) ExprID {
	return e.newUnary(ExprGroup, span, child)
}

func (e *Exprs) NewUnwrap(span source.Span, child ExprID) ExprID {
	return e.newUnary(ExprUnwrap, span, child)
}

func (e *Exprs) NewPropagate(span source.Span, child ExprID) ExprID {
	return e.newUnary(ExprPropagate, span, child)
}

// Unary returns the payload shared by the plain forwarding wrappers.
func (e *Exprs) Unary(id ExprID) (*ExprUnaryData, bool) {
	expr := e.Get(id)
	if expr == nil {
		return nil, false
	}
	switch expr.Kind {
	case ExprGroup, ExprUnwrap, ExprPropagate:
		return e.Unaries.Get(uint32(expr.Payload)), true
	}
	return nil, false
}

func (e *Exprs) NewUpcast(span source.Span, child ExprID, target types.TypeID) ExprID {
	payload := e.Upcasts.Allocate(ExprUpcastData{Child: child, Target: target})
	return e.new(ExprUpcast, span, PayloadID(payload))
}

func (e *Exprs) Upcast(id ExprID) (*ExprUpcastData, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != ExprUpcast {
		return nil, false
	}
	return e.Upcasts.Get(uint32(expr.Payload)), true
}

// WrapUpcast reparents the expression held by slot under a fresh upcast
// node and stores the wrapper back into the slot. The slot must be the
// owning reference of the child (a payload or statement field); because
// analysis of a function is single-threaded, the swap needs no
// synchronization.
func (e *Exprs) WrapUpcast(slot *ExprID, target types.TypeID) ExprID {
	child := *slot
	span := source.Span{}
	if expr := e.Get(child); expr != nil {
		span = expr.Span
	}
	id := e.NewUpcast(span, child, target)
	*slot = id
	return id
}

// ForwardedChild returns the wrapped child of a forwarding wrapper.
func (e *Exprs) ForwardedChild(id ExprID) (ExprID, bool) {
	expr := e.Get(id)
	if expr == nil || !expr.Kind.ForwardsOwnership() {
		return NoExprID, false
	}
	if expr.Kind == ExprUpcast {
		data := e.Upcasts.Get(uint32(expr.Payload))
		return data.Child, true
	}
	data := e.Unaries.Get(uint32(expr.Payload))
	return data.Child, true
}
