package codegen

import (
	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/source"
	"ember/internal/types"
)

// ValueID names a virtual register produced by one instruction.
type ValueID uint32

// NoValueID marks the absence of a value.
const NoValueID ValueID = 0

func (id ValueID) IsValid() bool { return id != NoValueID }

// LocalID names a variable slot of the generated function.
type LocalID uint32

const NoLocalID LocalID = 0

func (id LocalID) IsValid() bool { return id != NoLocalID }

// Local is one variable slot.
type Local struct {
	Name source.StringID
	Type types.TypeID
}

// OpKind enumerates instruction kinds of the linear form.
type OpKind uint8

const (
	// OpLit materializes a literal.
	OpLit OpKind = iota
	// OpLoadVar reads a variable slot. The loaded value is a borrowed
	// reference; taking it requires an explicit retain.
	OpLoadVar
	// OpStoreVar writes a value into a variable slot.
	OpStoreVar
	// OpAllocErr allocates a slot for a locally handled failure.
	OpAllocErr
	// OpCall invokes a resolved function. ErrDest receives the failure
	// when the callee declares one.
	OpCall
	// OpCallableCall applies a callable value.
	OpCallableCall
	// OpSuperCall invokes a superclass member on the current instance.
	OpSuperCall
	// OpTypeValue reifies a type as a value.
	OpTypeValue
	// OpSizeOf evaluates a type's storage size.
	OpSizeOf
	// OpUpcast widens a class reference. Representation-preserving.
	OpUpcast
	// OpUnwrap extracts the payload of a present optional.
	OpUnwrap
	// OpHasValue tests an optional for presence.
	OpHasValue
	// OpErrTest tests an error slot; true means the call succeeded.
	OpErrTest
	// OpPropagateErr returns through the function's failure path when
	// the tested error slot is set.
	OpPropagateErr
	// OpRetain increments the reference count of a managed value.
	OpRetain
	// OpRelease decrements the reference count of a managed value.
	OpRelease
	// OpJump transfers control to an instruction index.
	OpJump
	// OpJumpIfFalse branches when the condition is false.
	OpJumpIfFalse
	// OpReturn leaves the function, optionally carrying a value.
	OpReturn
)

func (k OpKind) String() string {
	switch k {
	case OpLit:
		return "lit"
	case OpLoadVar:
		return "load"
	case OpStoreVar:
		return "store"
	case OpAllocErr:
		return "alloc_err"
	case OpCall:
		return "call"
	case OpCallableCall:
		return "call_value"
	case OpSuperCall:
		return "call_super"
	case OpTypeValue:
		return "type_value"
	case OpSizeOf:
		return "size_of"
	case OpUpcast:
		return "upcast"
	case OpUnwrap:
		return "unwrap"
	case OpHasValue:
		return "has_value"
	case OpErrTest:
		return "err_test"
	case OpPropagateErr:
		return "propagate_err"
	case OpRetain:
		return "retain"
	case OpRelease:
		return "release"
	case OpJump:
		return "jump"
	case OpJumpIfFalse:
		return "jump_if_false"
	case OpReturn:
		return "return"
	}
	return "unknown"
}

// Instr is one instruction of the linear form.
type Instr struct {
	Kind OpKind

	Lit       LitInstr
	LoadVar   LoadVarInstr
	StoreVar  StoreVarInstr
	AllocErr  AllocErrInstr
	Call      CallInstr
	TypeValue TypeValueInstr
	SizeOf    SizeOfInstr
	Upcast    UpcastInstr
	Unwrap    UnwrapInstr
	HasValue  HasValueInstr
	ErrTest   ErrTestInstr
	PropErr   PropagateErrInstr
	Ref       RefInstr
	Jump      JumpInstr
	Return    ReturnInstr
}

type LitInstr struct {
	Dst   ValueID
	Lit   ast.LitKind
	Value source.StringID
	Type  types.TypeID
}

type LoadVarInstr struct {
	Dst  ValueID
	Slot LocalID
}

type StoreVarInstr struct {
	Slot LocalID
	Src  ValueID
}

type AllocErrInstr struct {
	Dst  ValueID
	Type types.TypeID
}

// CallInstr backs OpCall, OpCallableCall and OpSuperCall. Callee is set
// for resolved functions, Callable for applied values. ErrDest is the
// slot the callee's failure lands in, NoValueID for callees that cannot
// fail.
type CallInstr struct {
	Dst      ValueID
	Callee   decls.FunctionID
	Callable ValueID
	Args     []ValueID
	ErrDest  ValueID
}

type TypeValueInstr struct {
	Dst  ValueID
	Type types.TypeID
}

type SizeOfInstr struct {
	Dst  ValueID
	Type types.TypeID
}

type UpcastInstr struct {
	Dst    ValueID
	Src    ValueID
	Target types.TypeID
}

type UnwrapInstr struct {
	Dst ValueID
	Src ValueID
}

type HasValueInstr struct {
	Dst ValueID
	Src ValueID
}

type ErrTestInstr struct {
	Dst ValueID
	Err ValueID
}

type PropagateErrInstr struct {
	Err ValueID
}

// RefInstr backs OpRetain and OpRelease.
type RefInstr struct {
	Src ValueID
}

// JumpInstr backs OpJump and OpJumpIfFalse. Target indexes into the
// function's instruction list.
type JumpInstr struct {
	Cond   ValueID
	Target int
}

type ReturnInstr struct {
	Src ValueID // NoValueID for a bare return
}

// Func is the generated linear form of one function body.
type Func struct {
	Name   source.StringID
	Fn     decls.FunctionID
	Locals []Local
	Instrs []Instr

	// ErrOut is the slot failures propagate through; valid only for
	// error-prone functions.
	ErrOut ValueID

	numValues uint32
}

// NumValues returns the count of virtual registers the function uses.
func (f *Func) NumValues() int { return int(f.numValues) }
