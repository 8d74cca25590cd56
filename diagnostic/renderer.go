// Copyright © 2024 The rebug authors

package diagnostic

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Renderer formats diagnostics as annotated source snippets.
type Renderer struct {
	// Color controls ANSI color output. Default is ColorAuto.
	Color ColorMode

	// SourceReader reads source text by name. If nil, os.ReadFile is
	// used, so names must be file paths.
	SourceReader func(string) ([]byte, error)
}

// Render writes a single diagnostic to w.
func (r *Renderer) Render(w io.Writer, d Diagnostic) error {
	var buf bytes.Buffer
	r.renderInto(&buf, choosePalette(r.Color, fileFromWriter(w)), d)
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderAll writes all diagnostics to w separated by blank lines.
func (r *Renderer) RenderAll(w io.Writer, diags []Diagnostic) error {
	pal := choosePalette(r.Color, fileFromWriter(w))
	var buf bytes.Buffer
	for i, d := range diags {
		if i > 0 {
			buf.WriteByte('\n')
		}
		r.renderInto(&buf, pal, d)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (r *Renderer) renderInto(buf *bytes.Buffer, pal palette, d Diagnostic) {
	label, color := severityLabel(d.Severity, pal)
	fmt.Fprintf(buf, "%s%s%s%s:%s %s%s%s\n",
		color, pal.bold, label, pal.reset,
		pal.reset,
		pal.bold, d.Message, pal.reset)
	for _, span := range d.Spans {
		r.renderSpan(buf, pal, span)
	}
	for _, note := range d.Notes {
		fmt.Fprintf(buf, "   %s=%s note: %s\n", pal.boldCyan, pal.reset, note)
	}
}

func severityLabel(s Severity, pal palette) (string, string) {
	switch s {
	case SeverityWarning:
		return "warning", pal.yellow
	case SeverityNote:
		return "note", pal.boldCyan
	default:
		return "error", pal.boldRed
	}
}

func (r *Renderer) renderSpan(buf *bytes.Buffer, pal palette, span Span) {
	fmt.Fprintf(buf, "  %s-->%s %s\n", pal.boldBlue, pal.reset, spanLocation(span))

	source := r.lookupLine(span.File, span.Line)
	if source == "" {
		fmt.Fprintf(buf, "   %s|%s\n", pal.boldBlue, pal.reset)
		return
	}

	g := gutter{pal: pal, width: len(strconv.Itoa(span.Line))}
	g.blank(buf)
	// Tabs expand to spaces so the underline aligns.
	g.source(buf, span.Line, strings.ReplaceAll(source, "\t", "    "))
	pad, carets := underlineFor(span, source)
	g.annotate(buf, pad, carets, span.Label)
	g.blank(buf)
}

func spanLocation(span Span) string {
	switch {
	case span.Line > 0 && span.Col > 0:
		return fmt.Sprintf("%s:%d:%d", span.File, span.Line, span.Col)
	case span.Line > 0:
		return fmt.Sprintf("%s:%d", span.File, span.Line)
	default:
		return span.File
	}
}

// gutter prints the pipe-margin lines of one source snippet.
type gutter struct {
	pal   palette
	width int
}

func (g gutter) blank(buf *bytes.Buffer) {
	fmt.Fprintf(buf, " %s%s |%s\n", g.pal.boldBlue, strings.Repeat(" ", g.width), g.pal.reset)
}

func (g gutter) source(buf *bytes.Buffer, line int, text string) {
	fmt.Fprintf(buf, " %s%d |%s  %s\n", g.pal.boldBlue, line, g.pal.reset, text)
}

func (g gutter) annotate(buf *bytes.Buffer, pad, carets, label string) {
	fmt.Fprintf(buf, " %s%s |%s  %s%s%s%s",
		g.pal.boldBlue, strings.Repeat(" ", g.width), g.pal.reset,
		pad, g.pal.boldRed, carets, g.pal.reset)
	if label != "" {
		fmt.Fprintf(buf, " %s%s%s", g.pal.boldRed, label, g.pal.reset)
	}
	buf.WriteByte('\n')
}

// underlineFor positions the caret run under the span, measured in
// display columns of the tab-expanded source line.
func underlineFor(span Span, source string) (pad, carets string) {
	col := span.Col
	if col <= 0 {
		col = 1
	}
	end := span.EndCol
	if end <= 0 {
		end = endOfToken(source, col)
	}
	if end < col {
		end = col
	}
	width := 0
	if col > 1 && col-1 <= len(source) {
		width = displayWidth(source[:col-1])
	}
	return strings.Repeat(" ", width), strings.Repeat("^", end-col+1)
}

func (r *Renderer) lookupLine(file string, line int) string {
	if file == "" || line <= 0 {
		return ""
	}
	read := r.SourceReader
	if read == nil {
		read = func(name string) ([]byte, error) {
			return os.ReadFile(name) //nolint:gosec // reads user-named sources for display
		}
	}
	data, err := read(file)
	if err != nil {
		return ""
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		if n == line {
			return sc.Text()
		}
	}
	return ""
}

// endOfToken scans from col for the end of the current token.
func endOfToken(source string, col int) int {
	if col <= 0 || col > len(source) {
		return col
	}
	end := col - 1
	for end < len(source) {
		ch, size := utf8.DecodeRuneInString(source[end:])
		if ch == ' ' || ch == '\t' || ch == '(' || ch == ')' {
			break
		}
		end += size
	}
	if end == col-1 {
		return col
	}
	return end
}

// displayWidth returns the display width of a string, expanding tabs to
// 4 spaces.
func displayWidth(s string) int {
	w := 0
	for _, ch := range s {
		if ch == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// fileFromWriter attempts to extract an *os.File from a writer for
// terminal detection. Returns nil if the writer is not backed by a file.
func fileFromWriter(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}
