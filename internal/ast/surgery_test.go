package ast

import (
	"testing"

	"ember/internal/source"
	"ember/internal/types"
)

func TestWrapUpcastReparentsOwningSlot(t *testing.T) {
	b := NewBuilder(Hints{}, nil)
	child := b.Exprs.NewIdent(source.Span{File: 1, Start: 2, End: 5}, b.Intern("x"))
	args := b.Args.New(source.Span{}, MoodImperative, []ExprID{child}, nil)
	call := b.Exprs.NewCall(source.Span{}, NoExprID, b.Intern("f"), args)

	target := types.TypeID(7)
	argList := b.Args.Get(args)
	wrapper := b.Exprs.WrapUpcast(&argList.Exprs[0], target)

	if argList.Exprs[0] != wrapper {
		t.Fatalf("slot still holds %d, want wrapper %d", argList.Exprs[0], wrapper)
	}
	data, ok := b.Exprs.Upcast(wrapper)
	if !ok {
		t.Fatal("wrapper is not an upcast node")
	}
	if data.Child != child {
		t.Fatalf("wrapper child is %d, want %d", data.Child, child)
	}
	if data.Target != target {
		t.Fatalf("wrapper target is %d, want %d", data.Target, target)
	}
	// Wrapper inherits the child's position.
	if sp := b.Exprs.Get(wrapper).Span; sp != b.Exprs.Get(child).Span {
		t.Fatalf("wrapper span %v differs from child span %v", sp, b.Exprs.Get(child).Span)
	}
	// The call payload itself is untouched.
	callData, _ := b.Exprs.Call(call)
	if callData.Args != args {
		t.Fatal("call argument list changed")
	}
}

func TestForwardedChildChain(t *testing.T) {
	b := NewBuilder(Hints{}, nil)
	leaf := b.Exprs.NewLit(source.Span{}, LitStr, b.Intern("hi"))
	unwrap := b.Exprs.NewUnwrap(source.Span{}, leaf)
	group := b.Exprs.NewGroup(source.Span{}, unwrap)

	mid, ok := b.Exprs.ForwardedChild(group)
	if !ok || mid != unwrap {
		t.Fatalf("group child = %d, %v", mid, ok)
	}
	got, ok := b.Exprs.ForwardedChild(mid)
	if !ok || got != leaf {
		t.Fatalf("unwrap child = %d, %v", got, ok)
	}
	if _, ok := b.Exprs.ForwardedChild(leaf); ok {
		t.Fatal("literal must not forward")
	}
}
