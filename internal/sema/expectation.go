package sema

import (
	"ember/internal/types"
)

// Expectation is the contextual type constraint a parent places on a
// subexpression. The zero value means "no constraint".
type Expectation struct {
	Type types.TypeID
}

func NoExpectation() Expectation {
	return Expectation{}
}

func Expect(t types.TypeID) Expectation {
	return Expectation{Type: t}
}

func (e Expectation) None() bool {
	return e.Type == types.NoTypeID
}
