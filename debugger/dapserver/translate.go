// Copyright © 2024 The rebug authors

package dapserver

import (
	"github.com/google/go-dap"
	"github.com/luthersystems/rebug/debugger"
)

// translateStackFrames converts an engine frame snapshot (outermost
// first) to DAP stack frames (innermost first, ids 1-based from the
// top).
func translateStackFrames(frames []*debugger.Frame) []dap.StackFrame {
	out := make([]dap.StackFrame, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		frame := frames[i]
		sf := dap.StackFrame{
			Id:   len(frames) - i,
			Name: frame.Name(),
			Line: frame.Line(),
		}
		if frame.Code.File != "" {
			sf.Source = &dap.Source{Name: frame.Code.File, Path: frame.Code.File}
		}
		if stmt := frame.Statement(); stmt != nil && stmt.Source != nil {
			sf.Column = stmt.Source.Col
		}
		out = append(out, sf)
	}
	return out
}

func translateVariables(bindings []debugger.ScopeBinding) []dap.Variable {
	out := make([]dap.Variable, len(bindings))
	for i, b := range bindings {
		out[i] = dap.Variable{
			Name:  b.Name,
			Value: debugger.FormatValue(b.Value),
			Type:  b.Value.Kind.String(),
		}
	}
	return out
}

// translateSessions lists the captured binding sets as pseudo-variables
// so a client can see which sessions exist.
func translateSessions(store *debugger.Store) []dap.Variable {
	if store == nil {
		return nil
	}
	ids := store.IDs()
	out := make([]dap.Variable, 0, len(ids))
	for _, id := range ids {
		set, err := store.Get(id)
		if err != nil {
			continue
		}
		out = append(out, dap.Variable{
			Name:  set.FuncName,
			Value: id,
			Type:  "session",
		})
	}
	return out
}

// translateBreakpoints acknowledges requested line breakpoints.  Lines
// resolve to statements lazily as functions are first entered, so every
// request is reported verified against the source file.
func translateBreakpoints(file string, lines []int) []dap.Breakpoint {
	out := make([]dap.Breakpoint, len(lines))
	for i, line := range lines {
		out[i] = dap.Breakpoint{
			Id:       i + 1,
			Verified: true,
			Line:     line,
			Source:   &dap.Source{Name: file, Path: file},
		}
	}
	return out
}
