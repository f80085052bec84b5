package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindNoReturn is the sentinel for expressions that produce no value
	// and for the "cannot fail" error slot of a callee signature.
	KindNoReturn
	KindBool
	KindInt
	KindReal
	KindByte
	KindSymbol
	KindString
	KindClass
	// KindProtocol is a managed existential; Ref is the protocol ordinal.
	KindProtocol
	// KindBox is a managed single-slot heap cell over Elem.
	KindBox
	KindCallable
	KindOptional
	// KindTypeValue is the type of a reified type expression; Elem holds
	// the referenced type.
	KindTypeValue
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNoReturn:
		return "no-return"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindByte:
		return "byte"
	case KindSymbol:
		return "symbol"
	case KindString:
		return "string"
	case KindClass:
		return "class"
	case KindProtocol:
		return "protocol"
	case KindBox:
		return "box"
	case KindCallable:
		return "callable"
	case KindOptional:
		return "optional"
	case KindTypeValue:
		return "type-value"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
// Ref carries the class ordinal for KindClass and the callable-info index
// for KindCallable; Elem carries the element of optionals and the
// referenced type of type values.
type Type struct {
	Kind Kind
	Elem TypeID
	Ref  uint32
}

// CallableInfo stores the signature of a callable type.
type CallableInfo struct {
	Params []TypeID
	Return TypeID
}

// Descriptor helpers ---------------------------------------------------------

func MakeClass(ordinal uint32) Type {
	return Type{Kind: KindClass, Ref: ordinal}
}

func MakeProtocol(ordinal uint32) Type {
	return Type{Kind: KindProtocol, Ref: ordinal}
}

func MakeBox(elem TypeID) Type {
	return Type{Kind: KindBox, Elem: elem}
}

func MakeOptional(elem TypeID) Type {
	return Type{Kind: KindOptional, Elem: elem}
}

func MakeTypeValue(of TypeID) Type {
	return Type{Kind: KindTypeValue, Elem: of}
}
