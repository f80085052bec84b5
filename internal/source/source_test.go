package source

import (
	"testing"
)

func TestInternerDedup(t *testing.T) {
	in := NewInterner()
	a := in.Intern("🐟")
	b := in.Intern("🐟")
	if a != b {
		t.Fatalf("expected identical IDs for identical strings, got %d and %d", a, b)
	}
	if a == NoStringID {
		t.Fatalf("interned string must not get the NoStringID sentinel")
	}
	got, ok := in.Lookup(a)
	if !ok || got != "🐟" {
		t.Fatalf("lookup returned %q, %v", got, ok)
	}
}

func TestInternerNoStringID(t *testing.T) {
	in := NewInterner()
	got, ok := in.Lookup(NoStringID)
	if !ok || got != "" {
		t.Fatalf("NoStringID must resolve to empty string, got %q, %v", got, ok)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	got := a.Cover(b)
	if got.Start != 2 || got.End != 8 {
		t.Fatalf("cover produced %v", got)
	}
	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("covering across files must be a no-op, got %v", got)
	}
}

func TestFileSetPosition(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("main.embast", []byte("first\nsecond\nthird"))
	path, lc := fs.Position(Span{File: id, Start: 6, End: 12})
	if path != "main.embast" {
		t.Fatalf("unexpected path %q", path)
	}
	if lc.Line != 2 || lc.Col != 1 {
		t.Fatalf("expected 2:1, got %d:%d", lc.Line, lc.Col)
	}
	line, ok := fs.Line(id, 2)
	if !ok || string(line) != "second" {
		t.Fatalf("line lookup returned %q, %v", line, ok)
	}
}

func TestFileSetNormalizesCRLF(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("x", []byte("a\nb"), 0)
	f := fs.Get(id)
	if f == nil || len(f.LineIdx) != 1 || f.LineIdx[0] != 1 {
		t.Fatalf("unexpected line index %v", f)
	}
}
