package ast

import (
	"ember/internal/source"
)

// ExprKind enumerates the different kinds of expressions.
type ExprKind uint8

const (
	// ExprIdent references a local variable or parameter.
	ExprIdent ExprKind = iota
	// ExprLit is a literal expression.
	ExprLit
	// ExprCall invokes a method or free function; the call may carry a
	// failure path in its callee's contract.
	ExprCall
	// ExprCallableCall applies a callable value to arguments.
	ExprCallableCall
	// ExprSuper calls into the superclass, either delegating to a super
	// initializer or invoking an overridden method.
	ExprSuper
	// ExprTypeAsValue reifies a type reference as a first-class value.
	ExprTypeAsValue
	// ExprSizeOf evaluates to the storage size of a type.
	ExprSizeOf
	// ExprCondAssign binds a name to an expression's result if it is
	// present, and is used as a condition.
	ExprCondAssign
	// ExprGroup is a parenthesized expression.
	ExprGroup
	// ExprUnwrap force-unwraps an optional value.
	ExprUnwrap
	// ExprPropagate re-raises the failure of its wrapped call in the
	// enclosing function.
	ExprPropagate
	// ExprUpcast widens a class value to a supertype. Inserted by type
	// analysis, never written by the parser.
	ExprUpcast
)

func (k ExprKind) String() string {
	switch k {
	case ExprIdent:
		return "ident"
	case ExprLit:
		return "lit"
	case ExprCall:
		return "call"
	case ExprCallableCall:
		return "callable-call"
	case ExprSuper:
		return "super"
	case ExprTypeAsValue:
		return "type-as-value"
	case ExprSizeOf:
		return "size-of"
	case ExprCondAssign:
		return "cond-assign"
	case ExprGroup:
		return "group"
	case ExprUnwrap:
		return "unwrap"
	case ExprPropagate:
		return "propagate"
	case ExprUpcast:
		return "upcast"
	}
	return "unknown"
}

// ForwardsOwnership reports whether the kind is a unary wrapper that is
// transparent to memory flow: it neither owns nor releases a value
// itself, and an ownership decision applied to it is forwarded unchanged
// to its wrapped child.
func (k ExprKind) ForwardsOwnership() bool {
	switch k {
	case ExprGroup, ExprUnwrap, ExprPropagate, ExprUpcast:
		return true
	}
	return false
}

// IsCallShaped reports whether the kind carries a callee failure contract.
func (k ExprKind) IsCallShaped() bool {
	switch k {
	case ExprCall, ExprCallableCall, ExprSuper:
		return true
	}
	return false
}

// Expr is an expression node. Analysis state (result type, temporary
// flag, error handling) lives in per-pass side tables, not on the node.
type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

// LitKind enumerates literal forms.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitReal
	LitBool
	LitStr
	LitSymbol
)
