package ast

import (
	"ember/internal/source"
)

// Args is the argument list attached to a call-shaped expression: the
// ordered expression arguments, the explicit generic type arguments and
// the mood the call was written in. The resolved generic argument types
// are analysis output and live in the sema result, not here.
type Args struct {
	Span        source.Span
	Mood        Mood
	Exprs       []ExprID
	GenericSyns []TypeSynID
}

type ArgLists struct {
	Arena *Arena[Args]
}

func NewArgLists(capHint uint) *ArgLists {
	return &ArgLists{
		Arena: NewArena[Args](capHint),
	}
}

func (a *ArgLists) New(span source.Span, mood Mood, exprs []ExprID, generics []TypeSynID) ArgsID {
	return ArgsID(a.Arena.Allocate(Args{
		Span:        span,
		Mood:        mood,
		Exprs:       exprs,
		GenericSyns: generics,
	}))
}

func (a *ArgLists) Get(id ArgsID) *Args {
	return a.Arena.Get(uint32(id))
}
