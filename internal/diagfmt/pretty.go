package diagfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"ember/internal/diag"
	"ember/internal/source"
)

// Pretty renders the diagnostics of a bag in a human-readable form.
// It walks bag.Items() in order (call bag.Sort() first). Each diagnostic
// prints as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with a ^~~~ underline covering the span,
// then the notes in the same layout. Identifiers in this language are
// emoji sequences, so underline alignment goes through NFC normalization
// and display-width measurement instead of byte counting.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	p := prettyPrinter{w: w, fs: fs, opts: opts, colors: newPalette(opts.Color)}
	for _, d := range bag.Items() {
		if err := p.diagnostic(d); err != nil {
			return err
		}
	}
	return nil
}

type palette struct {
	err  *color.Color
	warn *color.Color
	info *color.Color
	code *color.Color
	mark *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		code: color.New(color.Bold),
		mark: color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.code, p.mark} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

type prettyPrinter struct {
	w      io.Writer
	fs     *source.FileSet
	opts   PrettyOpts
	colors palette
}

func (p *prettyPrinter) diagnostic(d diag.Diagnostic) error {
	if err := p.header(d.Severity, d.Code, d.Primary, d.Message); err != nil {
		return err
	}
	if err := p.snippet(d.Primary); err != nil {
		return err
	}
	if !p.opts.ShowNotes {
		return nil
	}
	for _, n := range d.Notes {
		path, pos := p.fs.Position(n.Span)
		if _, err := fmt.Fprintf(p.w, "%s:%d:%d: note: %s\n",
			p.displayPath(path), pos.Line, pos.Col, n.Msg); err != nil {
			return err
		}
		if err := p.snippet(n.Span); err != nil {
			return err
		}
	}
	return nil
}

func (p *prettyPrinter) header(sev diag.Severity, code diag.Code, sp source.Span, msg string) error {
	path, pos := p.fs.Position(sp)
	sevText := p.colors.severity(sev).Sprint(sev.String())
	codeText := p.colors.code.Sprint(code.String())
	_, err := fmt.Fprintf(p.w, "%s:%d:%d: %s %s: %s\n",
		p.displayPath(path), pos.Line, pos.Col, sevText, codeText, msg)
	return err
}

// snippet prints the primary source line with its underline, preceded by
// up to opts.Context plain lines of leading context.
func (p *prettyPrinter) snippet(sp source.Span) error {
	_, pos := p.fs.Position(sp)
	line, ok := p.fs.Line(sp.File, pos.Line)
	if !ok {
		return nil
	}

	first := pos.Line
	for c := int8(0); c < p.opts.Context && first > 1; c++ {
		first--
	}
	for ln := first; ln < pos.Line; ln++ {
		ctx, ok := p.fs.Line(sp.File, ln)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(p.w, "%5d | %s\n", ln, ctx); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(p.w, "%5d | %s\n", pos.Line, line); err != nil {
		return err
	}

	underline := underlineFor(line, pos.Col, sp.Len())
	_, err := fmt.Fprintf(p.w, "      | %s\n", p.colors.mark.Sprint(underline))
	return err
}

// underlineFor builds the "   ^~~~" marker for a span starting at the
// 1-based byte column col and covering spanLen bytes of line.
func underlineFor(line []byte, col uint32, spanLen uint32) string {
	start := int(col) - 1
	if start < 0 {
		start = 0
	}
	if start > len(line) {
		start = len(line)
	}
	end := start + int(spanLen)
	if end > len(line) {
		end = len(line)
	}

	pad := displayWidth(line[:start])
	width := displayWidth(line[start:end])
	if width < 1 {
		width = 1
	}

	var sb strings.Builder
	sb.Grow(pad + width)
	sb.WriteString(strings.Repeat(" ", pad))
	sb.WriteByte('^')
	sb.WriteString(strings.Repeat("~", width-1))
	return sb.String()
}

// displayWidth measures terminal columns. Composed emoji spellings are
// normalized first so a combining sequence counts once.
func displayWidth(b []byte) int {
	return runewidth.StringWidth(string(norm.NFC.Bytes(b)))
}

func (p *prettyPrinter) displayPath(path string) string {
	switch p.opts.PathMode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	case PathModeRelative:
		if wd, err := filepath.Abs("."); err == nil {
			if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
				return rel
			}
		}
	case PathModeBasename:
		return filepath.Base(path)
	}
	return path
}
