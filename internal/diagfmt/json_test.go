package diagfmt

import (
	"encoding/json"
	"strings"
	"testing"

	"ember/internal/diag"
	"ember/internal/source"
)

func TestJSONOutputCarriesPositionsAndNotes(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("a.emb", []byte("one two\nthree\n"))
	primary := source.Span{File: file, Start: 4, End: 7}

	bag := diag.NewBag(4)
	bag.Add(diag.NewError(diag.ErrUnhandledCall, primary, "unhandled").
		WithNote(source.Span{File: file, Start: 8, End: 13}, "callee declared here"))

	out := BuildOutput(bag, fs, JSONOpts{IncludePositions: true, IncludeNotes: true})
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("unexpected output shape: %+v", out)
	}

	d := out.Diagnostics[0]
	if d.Code != "EMB5001" || d.Severity != "ERROR" {
		t.Fatalf("code/severity wrong: %+v", d)
	}
	if d.Location.StartLine != 1 || d.Location.StartCol != 5 {
		t.Fatalf("start position wrong: %+v", d.Location)
	}
	if d.Location.EndLine != 1 || d.Location.EndCol != 8 {
		t.Fatalf("end position wrong: %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location.StartLine != 2 {
		t.Fatalf("note missing or misplaced: %+v", d.Notes)
	}
}

func TestJSONMaxTruncatesListNotCount(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("b.emb", []byte("abc\n"))

	bag := diag.NewBag(8)
	for i := uint32(0); i < 3; i++ {
		bag.Add(diag.NewError(diag.SemaTypeMismatch,
			source.Span{File: file, Start: i, End: i + 1}, "m"))
	}

	out := BuildOutput(bag, fs, JSONOpts{Max: 2})
	if len(out.Diagnostics) != 2 {
		t.Fatalf("expected 2 emitted diagnostics, got %d", len(out.Diagnostics))
	}
	if out.Count != 3 {
		t.Fatalf("count should reflect the full bag, got %d", out.Count)
	}
}

func TestWriteJSONEmitsValidDocument(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("c.emb", []byte("xyz\n"))

	bag := diag.NewBag(4)
	bag.Add(diag.New(diag.SevWarning, diag.FlowInfo,
		source.Span{File: file, Start: 0, End: 3}, "kept alive"))

	var buf strings.Builder
	if err := WriteJSON(&buf, bag, fs, JSONOpts{}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var round DiagnosticsOutput
	if err := json.Unmarshal([]byte(buf.String()), &round); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if round.Count != 1 || round.Diagnostics[0].Severity != "WARNING" {
		t.Fatalf("round trip mismatch: %+v", round)
	}
}
