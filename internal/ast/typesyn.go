package ast

import (
	"ember/internal/source"
)

// TypeSyn is a syntactic type reference. Resolution to a semantic type
// happens during type analysis; the parser records only the spelling.
type TypeSyn struct {
	Span     source.Span
	Name     source.StringID
	Optional bool
}

type TypeSyns struct {
	Arena *Arena[TypeSyn]
}

func NewTypeSyns(capHint uint) *TypeSyns {
	return &TypeSyns{
		Arena: NewArena[TypeSyn](capHint),
	}
}

func (t *TypeSyns) New(span source.Span, name source.StringID, optional bool) TypeSynID {
	return TypeSynID(t.Arena.Allocate(TypeSyn{Span: span, Name: name, Optional: optional}))
}

func (t *TypeSyns) Get(id TypeSynID) *TypeSyn {
	return t.Arena.Get(uint32(id))
}
