package ast

import (
	"ember/internal/source"
)

type Hints struct{ Stmts, Exprs, Args, TypeSyns uint }

// Builder owns the arenas of one compilation unit's AST.
type Builder struct {
	Exprs           *Exprs
	Stmts           *Stmts
	Args            *ArgLists
	TypeSyns        *TypeSyns
	StringsInterner *source.Interner
}

func NewBuilder(hints Hints, strings *source.Interner) *Builder {
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if hints.Args == 0 {
		hints.Args = 1 << 6
	}
	if hints.TypeSyns == 0 {
		hints.TypeSyns = 1 << 6
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Builder{
		Exprs:           NewExprs(hints.Exprs),
		Stmts:           NewStmts(hints.Stmts),
		Args:            NewArgLists(hints.Args),
		TypeSyns:        NewTypeSyns(hints.TypeSyns),
		StringsInterner: strings,
	}
}

// Intern is a convenience wrapper over the builder's string interner.
func (b *Builder) Intern(s string) source.StringID {
	return b.StringsInterner.Intern(s)
}
