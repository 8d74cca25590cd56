// Copyright © 2024 The rebug authors

package script

import (
	"fmt"
	"io"
)

// CallStack records the chain of function applications currently being
// evaluated.  Frames[0] is the outermost call.
type CallStack struct {
	MaxHeight int
	Frames    []CallFrame
}

// CallFrame describes one function application on the stack.
type CallFrame struct {
	FID    string
	Name   string
	Source *Location // location of the call expression
}

// Copy returns a deep copy of the stack.  Error values hold copies so
// the live stack can keep unwinding without mutating the record.
func (s *CallStack) Copy() *CallStack {
	if s == nil {
		return nil
	}
	frames := make([]CallFrame, len(s.Frames))
	copy(frames, s.Frames)
	return &CallStack{MaxHeight: s.MaxHeight, Frames: frames}
}

// Height returns the number of frames on the stack.
func (s *CallStack) Height() int {
	if s == nil {
		return 0
	}
	return len(s.Frames)
}

// Top returns the innermost frame, or nil for an empty stack.
func (s *CallStack) Top() *CallFrame {
	if s == nil || len(s.Frames) == 0 {
		return nil
	}
	return &s.Frames[len(s.Frames)-1]
}

// Push adds a frame for a function application.  It fails when the stack
// exceeds MaxHeight.
func (s *CallStack) Push(frame CallFrame) error {
	if s.MaxHeight > 0 && len(s.Frames) >= s.MaxHeight {
		return fmt.Errorf("stack height exceeded maximum: %d", s.MaxHeight)
	}
	s.Frames = append(s.Frames, frame)
	return nil
}

// Pop removes the innermost frame.
func (s *CallStack) Pop() {
	if len(s.Frames) == 0 {
		return
	}
	s.Frames = s.Frames[:len(s.Frames)-1]
}

// DebugPrint writes the stack to w, innermost frame first.
func (s *CallStack) DebugPrint(w io.Writer) {
	if s == nil || len(s.Frames) == 0 {
		fmt.Fprintln(w, "Empty call stack")
		return
	}
	fmt.Fprintln(w, "Stack Trace:")
	for i := len(s.Frames) - 1; i >= 0; i-- {
		f := &s.Frames[i]
		fmt.Fprintf(w, "  height %d: %s: %s\n", i, f.Source, f.Name)
	}
}
