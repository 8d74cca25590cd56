// Copyright © 2024 The rebug authors

package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/luthersystems/rebug/debugger"
	"github.com/muesli/reflow/wordwrap"
)

const sourceContextLines = 2

// Renderer draws the stepping surface for one navigator report: a
// header, a window of source lines around the viewed statement, and an
// optional wrapped status line.  It remembers how many terminal lines
// the last draw consumed so the next draw can clear them first.
type Renderer struct {
	w         io.Writer
	width     int
	lastLines int
}

// NewRenderer returns a renderer writing to w.  Status text wraps at
// width columns.
func NewRenderer(w io.Writer, width int) *Renderer {
	if width <= 0 {
		width = 80
	}
	return &Renderer{w: w, width: width}
}

// LastLines reports the number of lines the previous Render consumed.
func (r *Renderer) LastLines() int { return r.lastLines }

// Clear erases the block drawn by the previous Render by moving the
// cursor up and clearing each line.
func (r *Renderer) Clear() {
	for i := 0; i < r.lastLines; i++ {
		fmt.Fprint(r.w, "\x1b[A\x1b[2K")
	}
	r.lastLines = 0
}

// Render draws a report and returns the number of lines written.
func (r *Renderer) Render(rep debugger.Report, status string) int {
	lines := 0
	if rep.State == debugger.StateTerminated {
		switch {
		case rep.Fault != nil:
			lines += r.println("fault: " + rep.Fault.String())
		case rep.Value != nil:
			lines += r.println("value: " + rep.Value.String())
		default:
			lines += r.println("aborted")
		}
		lines += r.status(status)
		r.lastLines = lines
		return lines
	}

	frame := rep.Frame
	header := fmt.Sprintf("%s  (%s, depth %d)", frame.Name(), rep.Reason, rep.Depth)
	if rep.Offset > 0 {
		header += fmt.Sprintf("  viewing %d above", rep.Offset)
	}
	lines += r.println(header)
	lines += r.source(frame)
	lines += r.status(status)
	r.lastLines = lines
	return lines
}

// source draws a window of lines around the frame's current statement,
// with a --> marker on the current line and a * on lines carrying
// breakpoints.
func (r *Renderer) source(frame *debugger.Frame) int {
	line := frame.Line()
	text, err := frame.Env.Runtime.Library.LoadSource(frame.Code.File)
	if err != nil || line == 0 {
		return r.println(fmt.Sprintf("  at %s:%d (source not available)", frame.Code.File, line))
	}

	breakLines := make(map[int]bool)
	for _, idx := range frame.Code.BreakIndexes() {
		breakLines[frame.Code.LineFor(idx)] = true
	}

	srcLines := strings.Split(text, "\n")
	start := line - sourceContextLines
	if start < 1 {
		start = 1
	}
	end := line + sourceContextLines
	if end > len(srcLines) {
		end = len(srcLines)
	}

	n := 0
	for i := start; i <= end; i++ {
		marker := "   "
		if i == line {
			marker = "-->"
		}
		bp := " "
		if breakLines[i] {
			bp = "*"
		}
		n += r.println(fmt.Sprintf("%s%s %4d  %s", marker, bp, i, srcLines[i-1]))
	}
	return n
}

func (r *Renderer) status(status string) int {
	if status == "" {
		return 0
	}
	n := 0
	for _, l := range strings.Split(wordwrap.String(status, r.width), "\n") {
		n += r.println(l)
	}
	return n
}

// println writes one line.  The explicit carriage return keeps output
// aligned when the terminal is in raw mode.
func (r *Renderer) println(s string) int {
	fmt.Fprintf(r.w, "%s\r\n", s) //nolint:errcheck // best-effort terminal output
	return 1
}
