// Copyright © 2024 The rebug authors

package debugger

import (
	"sort"

	"github.com/luthersystems/rebug/script"
)

// Breakpoint is the per-statement breakpoint state.  A breakpoint is
// material when it is active or carries a condition; immaterial state is
// never stored, it is indistinguishable from no breakpoint at all.
type Breakpoint struct {
	// Active marks an unconditional breakpoint.
	Active bool
	// Cond is an optional condition expression evaluated in the paused
	// frame's scope.  A truthy result, or any fault during evaluation,
	// triggers the breakpoint.
	Cond *script.Value
	// CondSrc is the condition's source text as entered.
	CondSrc string
	// CondEnv is the scope the breakpoint was defined in.  Conditions
	// evaluate in the paused frame's own scope; CondEnv is the fallback
	// when no frame scope is supplied.
	CondEnv *script.Env

	// fromFile marks breakpoints installed from a file and line request
	// so they can be replaced wholesale without touching breakpoints set
	// interactively.
	fromFile bool
}

func (b *Breakpoint) material() bool {
	return b != nil && (b.Active || b.Cond != nil)
}

// Triggered reports whether the breakpoint stops evaluation in env.
// Only active breakpoints trigger; a disabled breakpoint keeps its
// condition but never matches.  Conditions fail open: a condition that
// faults counts as a match, so a broken condition never silently loses
// its breakpoint.
func (b *Breakpoint) Triggered(env *script.Env) bool {
	if b == nil || !b.Active {
		return false
	}
	if b.Cond == nil {
		return true
	}
	scope := env
	if scope == nil {
		scope = b.CondEnv
	}
	if scope == nil {
		return true
	}
	ret := scope.Eval(b.Cond)
	if ret.Kind == script.KError {
		return true
	}
	return ret.Truthy()
}

// ToggleMode selects the mutation Toggle applies to material
// breakpoints.
type ToggleMode int

const (
	// BreakRemove clears all breakpoint state.
	BreakRemove ToggleMode = iota
	// BreakDisable deactivates without clearing conditions.
	BreakDisable
	// BreakEnable activates unconditionally.
	BreakEnable
)

// SetBreak installs or replaces the breakpoint at a statement index.
// Immaterial breakpoints are dropped rather than stored.
func (c *FrameCode) SetBreak(idx int, bp *Breakpoint) {
	if idx < 1 || idx > len(c.Statements) {
		return
	}
	if !bp.material() {
		delete(c.breaks, idx)
		return
	}
	c.breaks[idx] = bp
}

// BreakAt returns the material breakpoint at a statement index, nil when
// none exists.
func (c *FrameCode) BreakAt(idx int) *Breakpoint {
	return c.breaks[idx]
}

// BreakIndexes returns the statement indexes carrying material
// breakpoints, ascending.
func (c *FrameCode) BreakIndexes() []int {
	idxs := make([]int, 0, len(c.breaks))
	for idx := range c.breaks {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	return idxs
}

// Toggle applies mode to every material breakpoint whose statement falls
// in the line's resolved range.  Statements in the range without a
// material breakpoint are untouched, so repeated application is
// idempotent and Toggle never materializes new breakpoints.
func (c *FrameCode) Toggle(line int, mode ToggleMode) {
	lo, hi := c.StatementRange(line)
	for idx := lo; idx <= hi; idx++ {
		bp, ok := c.breaks[idx]
		if !ok {
			continue
		}
		switch mode {
		case BreakRemove:
			delete(c.breaks, idx)
		case BreakDisable:
			bp.Active = false
			if !bp.material() {
				delete(c.breaks, idx)
			}
		case BreakEnable:
			bp.Active = true
		}
	}
}
