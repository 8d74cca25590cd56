// Copyright © 2024 The rebug authors

// Package debugger implements source-level debugging over the script
// evaluator: statement tables with line resolution, breakpoints, a
// stepping engine driven through the evaluator's hook interface, frame
// navigation, and capture of call bindings into re-evaluable
// expressions.
package debugger

import (
	"sort"

	"github.com/luthersystems/rebug/script"
)

// LineEntry maps a statement index to the source line it starts on.
type LineEntry struct {
	Index int // statement index, starting at 1
	Line  int
}

// FrameCode is the per-function statement table.  Statements are the
// body-position forms of the function in pre-order, the same order the
// evaluator's statement hook observes them, numbered from 1.  Sibling
// frames of one function share a single FrameCode.
type FrameCode struct {
	FID        string
	Name       string
	File       string
	Statements []*script.Value
	Lines      []LineEntry

	index  map[*script.Value]int
	byLine []LineEntry // Lines reordered by source line for lookup
	// breaks holds only material breakpoints; an absent index carries no
	// breakpoint state at all.
	breaks map[int]*Breakpoint
}

// NewFrameCode builds the statement table for a function body.  The
// forms must be the function's body forms; nested let, progn, and while
// bodies are flattened in the order the evaluator visits them.  Forms
// without a source location are skipped.
func NewFrameCode(fid, name, file string, body []*script.Value) *FrameCode {
	code := &FrameCode{
		FID:    fid,
		Name:   name,
		File:   file,
		index:  make(map[*script.Value]int),
		breaks: make(map[int]*Breakpoint),
	}
	code.flatten(body)
	code.byLine = make([]LineEntry, len(code.Lines))
	copy(code.byLine, code.Lines)
	sort.SliceStable(code.byLine, func(a, b int) bool {
		return code.byLine[a].Line < code.byLine[b].Line
	})
	return code
}

func (c *FrameCode) flatten(forms []*script.Value) {
	for _, form := range forms {
		if form.Source == nil {
			continue
		}
		c.Statements = append(c.Statements, form)
		idx := len(c.Statements)
		c.index[form] = idx
		c.Lines = append(c.Lines, LineEntry{Index: idx, Line: form.Source.Line})
		if form.Kind != script.KSExpr || len(form.Cells) == 0 || form.Cells[0].Kind != script.KSymbol {
			continue
		}
		switch form.Cells[0].Str {
		case "let", "while":
			if len(form.Cells) > 2 {
				c.flatten(form.Cells[2:])
			}
		case "progn":
			c.flatten(form.Cells[1:])
		}
	}
}

// Len returns the number of statements in the table.
func (c *FrameCode) Len() int { return len(c.Statements) }

// IndexOf resolves a statement form to its index, 0 when the form is not
// a statement of this table.  Lookup is by expression identity.
func (c *FrameCode) IndexOf(form *script.Value) int {
	return c.index[form]
}

// Statement returns the form at a 1-based statement index, nil when out
// of range.
func (c *FrameCode) Statement(idx int) *script.Value {
	if idx < 1 || idx > len(c.Statements) {
		return nil
	}
	return c.Statements[idx-1]
}

// LineFor returns the source line the statement at idx starts on, 0 when
// out of range.
func (c *FrameCode) LineFor(idx int) int {
	if idx < 1 || idx > len(c.Lines) {
		return 0
	}
	return c.Lines[idx-1].Line
}

// StatementRange resolves a source line to the contiguous, non-empty
// range [lo, hi] of statement indices associated with it.  A line that
// precedes every statement resolves to [1, 1].  A line between
// statements collapses to the last statement starting on an earlier
// line.  The table is in statement order, which is non-decreasing in
// line for straight-line code but may interleave with nested forms, so
// resolution considers every entry.
func (c *FrameCode) StatementRange(line int) (lo, hi int) {
	if len(c.byLine) == 0 {
		return 1, 1
	}
	first := sort.Search(len(c.byLine), func(i int) bool {
		return c.byLine[i].Line >= line
	})
	if first < len(c.byLine) && c.byLine[first].Line == line {
		lo = c.byLine[first].Index
		hi = lo
		for _, e := range c.byLine[first:] {
			if e.Line != line {
				break
			}
			if e.Index < lo {
				lo = e.Index
			}
			if e.Index > hi {
				hi = e.Index
			}
		}
		return lo, hi
	}
	if first == 0 {
		// Target precedes every statement.
		return 1, 1
	}
	// No statement starts on the target line: collapse to the preceding
	// statement.
	idx := c.byLine[first-1].Index
	return idx, idx
}
