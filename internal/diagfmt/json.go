package diagfmt

import (
	"encoding/json"
	"io"

	"ember/internal/diag"
	"ember/internal/source"
)

// LocationJSON is a span inside a file, as byte offsets plus optional
// line/column positions.
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON report.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(sp source.Span, fs *source.FileSet, opts JSONOpts) LocationJSON {
	path, pos := fs.Position(sp)
	p := prettyPrinter{fs: fs, opts: PrettyOpts{PathMode: opts.PathMode}}

	loc := LocationJSON{
		File:      p.displayPath(path),
		StartByte: sp.Start,
		EndByte:   sp.End,
	}
	if opts.IncludePositions {
		_, endPos := fs.Position(source.Span{File: sp.File, Start: sp.End, End: sp.End})
		loc.StartLine = pos.Line
		loc.StartCol = pos.Col
		loc.EndLine = endPos.Line
		loc.EndCol = endPos.Col
	}
	return loc
}

// BuildOutput collects the bag into the JSON structure without
// serializing it. Count reflects the full bag even when Max truncates
// the emitted list.
func BuildOutput(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) DiagnosticsOutput {
	items := bag.Items()
	limit := len(items)
	if opts.Max > 0 && opts.Max < limit {
		limit = opts.Max
	}

	diagnostics := make([]DiagnosticJSON, 0, limit)
	for _, d := range items[:limit] {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.String(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, fs, opts),
		}
		if opts.IncludeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for i, n := range d.Notes {
				dj.Notes[i] = NoteJSON{
					Message:  n.Msg,
					Location: makeLocation(n.Span, fs, opts),
				}
			}
		}
		diagnostics = append(diagnostics, dj)
	}

	return DiagnosticsOutput{
		Diagnostics: diagnostics,
		Count:       bag.Len(),
	}
}

// WriteJSON serializes the bag as an indented JSON report.
func WriteJSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	out := BuildOutput(bag, fs, opts)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
