// Copyright © 2024 The rebug authors

package debugger

import (
	"sync"

	"github.com/luthersystems/rebug/script"
	"github.com/sirupsen/logrus"
)

// StopReason explains why the engine suspended evaluation.
type StopReason string

const (
	StopEntry      StopReason = "entry"
	StopStep       StopReason = "step"
	StopBreakpoint StopReason = "breakpoint"
	StopPause      StopReason = "pause"
)

// StopEvent is delivered on the engine's stop channel each time the
// evaluation goroutine suspends.  The evaluation goroutine stays blocked
// until a control method supplies the next action, so frame state may be
// inspected freely while handling the event.
type StopEvent struct {
	Reason StopReason
	Frame  *Frame
	Depth  int
}

// Engine implements script.Debugger.  Evaluation runs on its own
// goroutine; the engine suspends it in WaitIfPaused and hands control to
// whoever consumes the stop channel.  All control methods must be called
// from a different goroutine than the one evaluating.
type Engine struct {
	mu      sync.Mutex
	enabled bool

	codes   map[string]*FrameCode
	frames  []*Frame
	pending map[string][]int // file -> lines awaiting a FrameCode

	step        stepper
	stopOnEntry bool
	stoppedOnce bool
	pauseReq    bool
	finishReq   bool
	inCondition bool

	stops       chan StopEvent
	actions     chan script.DebugAction
	pendingStop StopEvent

	log logrus.FieldLogger
}

// EngineOption configures a new Engine.
type EngineOption func(*Engine)

// WithLogger routes engine diagnostics through log.
func WithLogger(log logrus.FieldLogger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithStopOnEntry makes the engine pause at the first statement it
// observes.
func WithStopOnEntry() EngineOption {
	return func(e *Engine) { e.stopOnEntry = true }
}

// NewEngine returns an enabled engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		enabled: true,
		codes:   make(map[string]*FrameCode),
		pending: make(map[string][]int),
		stops:   make(chan StopEvent),
		actions: make(chan script.DebugAction),
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stopped returns the channel stop events are delivered on.
func (e *Engine) Stopped() <-chan StopEvent { return e.stops }

// IsEnabled implements script.Debugger.
func (e *Engine) IsEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Disable detaches the engine from evaluation.  A suspended evaluation
// must still be resumed or aborted.
func (e *Engine) Disable() {
	e.mu.Lock()
	e.enabled = false
	e.mu.Unlock()
}

// SetStopOnEntry arms or disarms the entry stop before evaluation
// begins.
func (e *Engine) SetStopOnEntry(stop bool) {
	e.mu.Lock()
	e.stopOnEntry = stop
	e.mu.Unlock()
}

// RequestPause asks the engine to suspend at the next statement.
func (e *Engine) RequestPause() {
	e.mu.Lock()
	e.pauseReq = true
	e.mu.Unlock()
}

// PushRoot installs the root frame for top-level program text.  Called
// before evaluation starts.
func (e *Engine) PushRoot(code *FrameCode, env *script.Env) *Frame {
	frame := &Frame{Code: code, Env: env}
	e.mu.Lock()
	e.frames = append(e.frames, frame)
	e.mu.Unlock()
	return frame
}

// Depth returns the live frame count.
func (e *Engine) Depth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.frames)
}

// Frames returns a snapshot of the live frames, outermost first.  Only
// meaningful while evaluation is suspended.
func (e *Engine) Frames() []*Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	frames := make([]*Frame, len(e.frames))
	copy(frames, e.frames)
	return frames
}

// CurrentFrame returns the innermost frame, nil when no frames are live.
func (e *Engine) CurrentFrame() *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.frames) == 0 {
		return nil
	}
	return e.frames[len(e.frames)-1]
}

// CodeFor returns the cached statement table for a function, building it
// on first use.  Sibling activations of one function share a table, so
// breakpoints set on it apply to all of them.
func (e *Engine) CodeFor(fun *script.Value) *FrameCode {
	data := fun.Fun
	e.mu.Lock()
	defer e.mu.Unlock()
	if code, ok := e.codes[data.FID]; ok {
		return code
	}
	file := ""
	if data.Source != nil {
		file = data.Source.File
	}
	code := NewFrameCode(data.FID, funLabel(data), file, data.Body)
	e.applyPendingLocked(code)
	e.codes[data.FID] = code
	return code
}

// SetLineBreakpoints replaces the active line breakpoints for a source
// file.  Lines resolve against each function's statement table as the
// tables come into existence.
func (e *Engine) SetLineBreakpoints(file string, lines []int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, code := range e.codes {
		if code.File != file {
			continue
		}
		for _, idx := range code.BreakIndexes() {
			if bp := code.BreakAt(idx); bp != nil && bp.fromFile {
				code.SetBreak(idx, nil)
			}
		}
	}
	e.pending[file] = lines
	for _, code := range e.codes {
		if code.File == file {
			e.applyPendingLocked(code)
		}
	}
}

func (e *Engine) applyPendingLocked(code *FrameCode) {
	for _, line := range e.pending[code.File] {
		lo, _ := code.StatementRange(line)
		code.SetBreak(lo, &Breakpoint{Active: true, fromFile: true})
	}
}

// EnterFun implements script.Debugger.  Builtin calls carry no
// steppable statements and are ignored.
func (e *Engine) EnterFun(fenv *script.Env, call *script.Value, fun *script.Value) error {
	if fun.Fun.Builtin != nil {
		return nil
	}
	e.mu.Lock()
	inCond := e.inCondition
	e.mu.Unlock()
	if inCond {
		// Calls made by a breakpoint condition are not debuggee frames.
		return nil
	}
	code := e.CodeFor(fun)
	frame := &Frame{Code: code, Env: fenv, Fun: fun, Call: call}
	e.mu.Lock()
	e.frames = append(e.frames, frame)
	e.mu.Unlock()
	return nil
}

// LeaveFun implements script.Debugger.
func (e *Engine) LeaveFun(fenv *script.Env, fun *script.Value, ret *script.Value) {
	if fun.Fun.Builtin != nil {
		return
	}
	e.mu.Lock()
	if e.inCondition {
		e.mu.Unlock()
		return
	}
	if n := len(e.frames); n > 0 {
		e.frames = e.frames[:n-1]
	}
	e.mu.Unlock()
}

// Statement implements script.Debugger.  It advances the innermost
// frame's program counter and decides whether evaluation should suspend.
func (e *Engine) Statement(env *script.Env, expr *script.Value) bool {
	e.mu.Lock()
	if e.inCondition || len(e.frames) == 0 {
		e.mu.Unlock()
		return false
	}
	frame := e.frames[len(e.frames)-1]
	depth := len(e.frames)
	idx := frame.Code.IndexOf(expr)
	if idx == 0 {
		e.mu.Unlock()
		return false
	}
	frame.PC = idx

	var reason StopReason
	switch {
	case e.pauseReq:
		e.pauseReq = false
		reason = StopPause
	case e.stopOnEntry && !e.stoppedOnce:
		reason = StopEntry
	case e.step.shouldPause(depth):
		reason = StopStep
	}
	bp := frame.Code.BreakAt(idx)
	skipBreaks := e.step.suppressBreaks(depth)
	e.mu.Unlock()

	if reason == "" && bp != nil && !skipBreaks {
		// Conditions run in the paused frame's own scope.  Statement
		// hooks fired by the condition itself are suppressed.
		e.mu.Lock()
		e.inCondition = true
		e.mu.Unlock()
		hit := bp.Triggered(env)
		e.mu.Lock()
		e.inCondition = false
		e.mu.Unlock()
		if hit {
			reason = StopBreakpoint
		}
	}
	if reason == "" {
		return false
	}

	e.mu.Lock()
	e.stoppedOnce = true
	e.step.clear()
	e.pendingStop = StopEvent{Reason: reason, Frame: frame, Depth: depth}
	e.mu.Unlock()
	return true
}

// WaitIfPaused implements script.Debugger.  It publishes the stop event
// and blocks until a control method supplies the next action.
func (e *Engine) WaitIfPaused(env *script.Env, expr *script.Value) script.DebugAction {
	e.mu.Lock()
	event := e.pendingStop
	depth := len(e.frames)
	e.mu.Unlock()

	e.stops <- event
	action := <-e.actions

	e.mu.Lock()
	switch action {
	case script.DebugStepInto:
		e.step.set(stepInto, depth)
	case script.DebugStepOver:
		e.step.set(stepOver, depth)
	case script.DebugStepOut:
		if e.finishReq {
			e.finishReq = false
			e.step.setFinish(depth)
		} else {
			e.step.set(stepOut, depth)
		}
	default:
		e.step.clear()
	}
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{
		"reason": event.Reason,
		"frame":  event.Frame.Name(),
		"line":   event.Frame.Line(),
	}).Debug("debugger resumed")
	return action
}

// Continue resumes a suspended evaluation with no step armed, running to
// the next triggered breakpoint or to termination.  Protocol clients use
// this; the navigator's continue is ContinueFrame.
func (e *Engine) Continue() { e.actions <- script.DebugContinue }

// ContinueFrame resumes until the next triggered breakpoint at any
// depth, or until the current frame completes and control pauses in the
// caller.  Issued from the root frame it runs to completion.
func (e *Engine) ContinueFrame() { e.actions <- script.DebugStepOut }

// StepInto resumes until the next statement at any depth.
func (e *Engine) StepInto() { e.actions <- script.DebugStepInto }

// StepOver resumes until the next statement at the same or lesser depth.
func (e *Engine) StepOver() { e.actions <- script.DebugStepOver }

// StepOut runs the current frame to completion, pausing in the caller.
// Breakpoints inside the finishing frame and its callees are not
// consulted.
func (e *Engine) StepOut() {
	e.mu.Lock()
	e.finishReq = true
	e.mu.Unlock()
	e.actions <- script.DebugStepOut
}

// Abort unwinds the suspended evaluation with an abort condition.
func (e *Engine) Abort() { e.actions <- script.DebugAbort }
