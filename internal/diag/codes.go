package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind. Blocks are reserved per phase:
// 3xxx type analysis, 4xxx memory flow, 5xxx error handling, 9xxx
// internal faults.
type Code uint16

const (
	UnknownCode Code = 0

	// Type analysis
	SemaInfo               Code = 3000
	SemaUnresolvedName     Code = 3001
	SemaUnresolvedMethod   Code = 3002
	SemaUnresolvedInit     Code = 3003
	SemaTypeMismatch       Code = 3004
	SemaArityMismatch      Code = 3005
	SemaNotCallable        Code = 3006
	SemaNotOptional        Code = 3007
	SemaUnresolvedType     Code = 3008
	SemaNoSuperclass       Code = 3009
	SemaCondNotConditional Code = 3010
	SemaDuplicateVariable  Code = 3011

	// Memory flow
	FlowInfo Code = 4000

	// Error handling
	ErrInfo              Code = 5000
	ErrUnhandledCall     Code = 5001
	ErrTryNotErrorProne  Code = 5002
	ErrCannotPropagate   Code = 5003
	ErrSuperInitProne    Code = 5004
	ErrIncompatibleError Code = 5005
	ErrAlreadyHandled    Code = 5006

	// Internal invariant violations surfaced by the driver. The unit is
	// aborted; the code exists so reports can carry the fault.
	InternalFault Code = 9000
)

func (c Code) String() string {
	switch c {
	case UnknownCode:
		return "EMB0000"
	default:
		return fmt.Sprintf("EMB%04d", uint16(c))
	}
}
