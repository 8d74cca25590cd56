// Copyright © 2024 The rebug authors

package debugger

import (
	"github.com/luthersystems/rebug/script"
)

// Frame is one live interpreter frame: a function activation (or the
// root program) with its statement table, lexical scope, and program
// counter.
type Frame struct {
	Code *FrameCode
	Env  *script.Env
	// PC is the 1-based index of the statement currently executing, 0
	// before the first statement is reached.
	PC   int
	Fun  *script.Value // nil for the root frame
	Call *script.Value // the call expression that created the frame
}

// Line returns the source line of the current statement, 0 when the
// frame has not reached a statement yet.
func (f *Frame) Line() int {
	return f.Code.LineFor(f.PC)
}

// Statement returns the form at the program counter, nil before the
// first statement.
func (f *Frame) Statement() *script.Value {
	return f.Code.Statement(f.PC)
}

// Name returns the frame's function name, or the root label.
func (f *Frame) Name() string {
	return f.Code.Name
}
