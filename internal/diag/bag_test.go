package diag

import (
	"testing"

	"ember/internal/source"
)

func TestBagCap(t *testing.T) {
	b := NewBag(2)
	if !b.Add(NewError(SemaTypeMismatch, source.Span{}, "one")) {
		t.Fatal("first add rejected")
	}
	if !b.Add(NewError(SemaTypeMismatch, source.Span{}, "two")) {
		t.Fatal("second add rejected")
	}
	if b.Add(NewError(SemaTypeMismatch, source.Span{}, "three")) {
		t.Fatal("cap was not enforced")
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", b.Len())
	}
}

func TestBagSortDeterministic(t *testing.T) {
	b := NewBag(8)
	b.Add(NewError(ErrUnhandledCall, source.Span{File: 1, Start: 20, End: 25}, "later"))
	b.Add(NewError(SemaTypeMismatch, source.Span{File: 1, Start: 5, End: 9}, "earlier"))
	b.Add(New(SevWarning, SemaInfo, source.Span{File: 0, Start: 0, End: 1}, "other file"))
	b.Sort()
	items := b.Items()
	if items[0].Message != "other file" || items[1].Message != "earlier" || items[2].Message != "later" {
		t.Fatalf("unexpected order: %q %q %q", items[0].Message, items[1].Message, items[2].Message)
	}
}

func TestBagDedup(t *testing.T) {
	b := NewBag(8)
	sp := source.Span{File: 1, Start: 3, End: 7}
	b.Add(NewError(ErrUnhandledCall, sp, "dup"))
	b.Add(NewError(ErrUnhandledCall, sp, "dup"))
	b.Dedup()
	if b.Len() != 1 {
		t.Fatalf("expected 1 after dedup, got %d", b.Len())
	}
}

func TestReportBuilderEmitOnce(t *testing.T) {
	bag := NewBag(4)
	rb := ReportError(BagReporter{Bag: bag}, ErrUnhandledCall, source.Span{}, "boom").
		WithNote(source.Span{}, "declared here")
	rb.Emit()
	rb.Emit()
	if bag.Len() != 1 {
		t.Fatalf("expected exactly one emission, got %d", bag.Len())
	}
	if len(bag.Items()[0].Notes) != 1 {
		t.Fatalf("note lost")
	}
}
