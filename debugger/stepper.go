// Copyright © 2024 The rebug authors

package debugger

// stepMode selects how the stepper decides to pause at the next
// statement.
type stepMode int

const (
	stepNone stepMode = iota
	stepInto
	stepOver
	stepOut
)

// stepper pauses by comparing the current frame depth against the depth
// recorded when the step was issued.
type stepper struct {
	mode  stepMode
	depth int
	// noBreaks marks a finish: breakpoints inside the finishing frame
	// and its callees are not consulted until control pops out.
	noBreaks bool
}

func (s *stepper) set(mode stepMode, depth int) {
	s.mode = mode
	s.depth = depth
	s.noBreaks = false
}

func (s *stepper) setFinish(depth int) {
	s.mode = stepOut
	s.depth = depth
	s.noBreaks = true
}

func (s *stepper) clear() {
	s.mode = stepNone
	s.depth = 0
	s.noBreaks = false
}

// suppressBreaks reports whether breakpoints at the given frame depth
// are ignored while a finish runs its frame out.
func (s *stepper) suppressBreaks(depth int) bool {
	return s.mode == stepOut && s.noBreaks && depth >= s.depth
}

// shouldPause reports whether a statement at the given frame depth
// completes the pending step.
func (s *stepper) shouldPause(depth int) bool {
	switch s.mode {
	case stepInto:
		return true
	case stepOver:
		return depth <= s.depth
	case stepOut:
		return depth < s.depth
	default:
		return false
	}
}
