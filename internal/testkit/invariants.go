// Package testkit holds invariant checkers shared by analysis tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/sema"
)

// CheckAnalysisInvariants validates the analysis side tables of one
// function after a successful Check:
//  1. every registered expression has a recorded type
//  2. forwarding wrappers share ownership state with their child: a
//     wrapper taken while its child stays temporary (or vice versa)
//     means the take pass skipped part of a chain
//  3. every call-shaped expression whose call record is error-prone has
//     a handling decision
func CheckAnalysisInvariants(b *ast.Builder, table *decls.Table, res *sema.Result, fn decls.FunctionID) error {
	if b == nil || table == nil || res == nil {
		return fmt.Errorf("nil builder, table or result")
	}
	exprs := res.FunctionExprs(fn)
	if len(exprs) == 0 {
		return nil
	}
	if _, err := safecast.Conv[uint32](len(exprs)); err != nil {
		return fmt.Errorf("expression count overflow: %w", err)
	}

	for _, id := range exprs {
		exp := b.Exprs.Get(id)
		if exp == nil {
			return fmt.Errorf("registered expression %d has no node", id)
		}

		// 1) type recorded
		if _, ok := res.ExprType(id); !ok {
			return fmt.Errorf("%s expression %d has no recorded type", exp.Kind, id)
		}

		// 2) ownership flows through wrapper chains as a whole
		if exp.Kind.ForwardsOwnership() {
			child, ok := b.Exprs.ForwardedChild(id)
			if !ok || child == ast.NoExprID {
				return fmt.Errorf("%s expression %d has no forwarded child", exp.Kind, id)
			}
			if res.IsTemporary(id) != res.IsTemporary(child) {
				return fmt.Errorf("%s expression %d and its child %d disagree on ownership",
					exp.Kind, id, child)
			}
		}

		// 3) prone calls decided
		if info, ok := res.CallAt(id); ok && info.Prone {
			if _, ok := res.HandledAt(id); !ok {
				return fmt.Errorf("error-prone call %d has no handling decision", id)
			}
		}
	}
	return nil
}

// CheckUnitInvariants runs CheckAnalysisInvariants over every function
// of a table.
func CheckUnitInvariants(b *ast.Builder, table *decls.Table, res *sema.Result) error {
	for _, fn := range table.Functions() {
		if err := CheckAnalysisInvariants(b, table, res, fn); err != nil {
			return fmt.Errorf("function %d: %w", fn, err)
		}
	}
	return nil
}
