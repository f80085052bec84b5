package codegen

import (
	"fmt"
	"io"
	"strings"

	"ember/internal/source"
	"ember/internal/types"
)

// DumpFunc writes a human-readable representation of one lowered
// function. The output is a debugging aid, not a stable format.
func DumpFunc(w io.Writer, f *Func, strs *source.Interner, typesIn *types.Interner) error {
	if w == nil || f == nil {
		return nil
	}
	name := "_"
	if strs != nil {
		if s, ok := strs.Lookup(f.Name); ok && s != "" {
			name = s
		}
	}
	if _, err := fmt.Fprintf(w, "func %s locals=%d values=%d", name, len(f.Locals)-1, f.NumValues()); err != nil {
		return err
	}
	if f.ErrOut.IsValid() {
		if _, err := fmt.Fprintf(w, " err_out=v%d", f.ErrOut); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	for i := range f.Instrs {
		if _, err := fmt.Fprintf(w, "  %3d: %s\n", i, instrStr(&f.Instrs[i], typesIn)); err != nil {
			return err
		}
	}
	return nil
}

func instrStr(in *Instr, typesIn *types.Interner) string {
	switch in.Kind {
	case OpLit:
		return fmt.Sprintf("v%d = lit %s", in.Lit.Dst, typeStr(typesIn, in.Lit.Type))
	case OpLoadVar:
		return fmt.Sprintf("v%d = load l%d", in.LoadVar.Dst, in.LoadVar.Slot)
	case OpStoreVar:
		return fmt.Sprintf("store l%d, v%d", in.StoreVar.Slot, in.StoreVar.Src)
	case OpAllocErr:
		return fmt.Sprintf("v%d = alloc_err %s", in.AllocErr.Dst, typeStr(typesIn, in.AllocErr.Type))
	case OpCall, OpSuperCall, OpCallableCall:
		var sb strings.Builder
		fmt.Fprintf(&sb, "v%d = %s", in.Call.Dst, in.Kind)
		if in.Call.Callable.IsValid() {
			fmt.Fprintf(&sb, " v%d", in.Call.Callable)
		} else {
			fmt.Fprintf(&sb, " fn%d", in.Call.Callee)
		}
		sb.WriteString("(")
		for i, a := range in.Call.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "v%d", a)
		}
		sb.WriteString(")")
		if in.Call.ErrDest.IsValid() {
			fmt.Fprintf(&sb, " err=v%d", in.Call.ErrDest)
		}
		return sb.String()
	case OpTypeValue:
		return fmt.Sprintf("v%d = type_value %s", in.TypeValue.Dst, typeStr(typesIn, in.TypeValue.Type))
	case OpSizeOf:
		return fmt.Sprintf("v%d = size_of %s", in.SizeOf.Dst, typeStr(typesIn, in.SizeOf.Type))
	case OpUpcast:
		return fmt.Sprintf("v%d = upcast v%d to %s", in.Upcast.Dst, in.Upcast.Src, typeStr(typesIn, in.Upcast.Target))
	case OpUnwrap:
		return fmt.Sprintf("v%d = unwrap v%d", in.Unwrap.Dst, in.Unwrap.Src)
	case OpHasValue:
		return fmt.Sprintf("v%d = has_value v%d", in.HasValue.Dst, in.HasValue.Src)
	case OpErrTest:
		return fmt.Sprintf("v%d = err_test v%d", in.ErrTest.Dst, in.ErrTest.Err)
	case OpPropagateErr:
		return fmt.Sprintf("propagate_err v%d", in.PropErr.Err)
	case OpRetain:
		return fmt.Sprintf("retain v%d", in.Ref.Src)
	case OpRelease:
		return fmt.Sprintf("release v%d", in.Ref.Src)
	case OpJump:
		return fmt.Sprintf("jump %d", in.Jump.Target)
	case OpJumpIfFalse:
		return fmt.Sprintf("jump_if_false v%d, %d", in.Jump.Cond, in.Jump.Target)
	case OpReturn:
		if in.Return.Src.IsValid() {
			return fmt.Sprintf("return v%d", in.Return.Src)
		}
		return "return"
	}
	return "unknown"
}

func typeStr(in *types.Interner, id types.TypeID) string {
	if in == nil {
		return fmt.Sprintf("t%d", id)
	}
	return in.String(id)
}
