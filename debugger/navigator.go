// Copyright © 2024 The rebug authors

package debugger

import (
	"github.com/luthersystems/rebug/script"
	"github.com/sirupsen/logrus"
)

// RootFrameName labels the synthetic frame wrapping top-level program
// text.
const RootFrameName = "<root>"

// State is the navigator's lifecycle state.
type State int

const (
	// StateRunning means a live frame tree exists and evaluation is
	// suspended awaiting the next command.
	StateRunning State = iota
	// StateTerminated means evaluation finished: a final value or fault
	// has been recorded and no frames remain.
	StateTerminated
)

func (s State) String() string {
	if s == StateTerminated {
		return "terminated"
	}
	return "running"
}

// Command is a navigator transition.
type Command int

const (
	// CmdNextStatement advances the current frame one statement,
	// stepping over calls.
	CmdNextStatement Command = iota
	// CmdContinue runs until the next triggered breakpoint or until the
	// current frame completes; issued from the root frame it runs to
	// completion.
	CmdContinue
	// CmdStepIn forces entry into the call at the current statement.
	CmdStepIn
	// CmdFinish runs the current frame to completion and resumes the
	// caller.
	CmdFinish
	// CmdViewCaller moves the display offset one frame outward without
	// moving the control pointer.
	CmdViewCaller
	// CmdViewCallee moves the display offset back toward the control
	// pointer.
	CmdViewCallee
	// CmdAbort discards the frame tree and terminates with no value.
	CmdAbort
)

// IsViewCommand reports whether the command only adjusts the display
// offset.  View commands never re-zero the offset; every control
// command does.
func (c Command) IsViewCommand() bool {
	return c == CmdViewCaller || c == CmdViewCallee
}

// Report describes the navigator's observable state after a transition.
type Report struct {
	State  State
	Reason StopReason
	// Frame is the viewed frame: the control frame adjusted outward by
	// Offset.  Nil once terminated.
	Frame  *Frame
	Offset int
	Depth  int
	// Value holds the final value once terminated without fault.  An
	// aborted run terminates with Value nil and Fault nil.
	Value *script.Value
	// Fault holds the terminal fault, when evaluation failed.
	Fault *script.Value
}

// Navigator drives a suspended evaluation as an explicit state machine.
// It owns the evaluation goroutine and synchronizes with the engine, so
// commands are processed strictly one at a time.
type Navigator struct {
	engine *Engine
	state  State
	offset int
	frames []*Frame
	reason StopReason
	value  *script.Value
	fault  *script.Value
	done   chan *script.Value
	log    logrus.FieldLogger
}

// NavigatorOption configures Launch.
type NavigatorOption func(*Navigator)

// WithNavigatorLogger routes navigator diagnostics through log.
func WithNavigatorLogger(log logrus.FieldLogger) NavigatorOption {
	return func(n *Navigator) { n.log = log }
}

// Launch parses program text, installs a stepping engine on env's
// runtime, and begins evaluating on a new goroutine.  The returned
// navigator is suspended at the program's first statement unless the
// program has none, in which case it is already terminated.
func Launch(env *script.Env, name, text string, opts ...NavigatorOption) (*Navigator, error) {
	forms, err := env.Runtime.Reader.Read(name, text)
	if err != nil {
		return nil, parseStepError(err)
	}
	env.Runtime.Library.Put(name, text)

	n := &Navigator{
		state: StateRunning,
		done:  make(chan *script.Value, 1),
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.engine = NewEngine(WithStopOnEntry(), WithLogger(n.log))

	scope := env.Child()
	root := NewFrameCode(RootFrameName, RootFrameName, name, forms)
	n.engine.PushRoot(root, scope)
	env.Runtime.Debugger = n.engine

	go func() {
		n.done <- scope.EvalBody(forms)
	}()
	n.wait()
	return n, nil
}

// wait blocks until the evaluation goroutine either suspends or
// finishes, updating the navigator's snapshot.
func (n *Navigator) wait() {
	select {
	case event := <-n.engine.Stopped():
		n.reason = event.Reason
		n.frames = n.engine.Frames()
	case ret := <-n.done:
		n.terminate(ret)
	}
}

func (n *Navigator) terminate(ret *script.Value) {
	n.state = StateTerminated
	n.frames = nil
	n.offset = 0
	if ret.Kind == script.KError {
		if ret.Condition() == script.AbortCondition {
			// Aborted runs terminate with no value at all.
			return
		}
		n.fault = ret
		return
	}
	n.value = ret
}

// State returns the navigator's current state.
func (n *Navigator) State() State { return n.state }

// Engine exposes the underlying engine for breakpoint inspection.
func (n *Navigator) Engine() *Engine { return n.engine }

// Report returns the current observable state without transitioning.
func (n *Navigator) Report() Report {
	r := Report{
		State:  n.state,
		Reason: n.reason,
		Offset: n.offset,
		Depth:  len(n.frames),
		Value:  n.value,
		Fault:  n.fault,
	}
	if frame := n.ViewedFrame(); frame != nil {
		r.Frame = frame
	}
	return r
}

// ViewedFrame returns the frame the display offset points at, nil once
// terminated.
func (n *Navigator) ViewedFrame() *Frame {
	if len(n.frames) == 0 {
		return nil
	}
	idx := len(n.frames) - 1 - n.offset
	if idx < 0 {
		idx = 0
	}
	return n.frames[idx]
}

// Dispatch applies one command and returns the resulting state.  View
// commands adjust the display offset only.  Control commands re-zero
// the offset and resume the evaluation goroutine until it suspends
// again or finishes.
func (n *Navigator) Dispatch(cmd Command) Report {
	if n.state == StateTerminated {
		return n.Report()
	}
	switch cmd {
	case CmdViewCaller:
		if n.offset < len(n.frames)-1 {
			n.offset++
		}
		return n.Report()
	case CmdViewCallee:
		if n.offset > 0 {
			n.offset--
		}
		return n.Report()
	}
	n.offset = 0
	switch cmd {
	case CmdNextStatement:
		n.engine.StepOver()
	case CmdContinue:
		n.engine.ContinueFrame()
	case CmdStepIn:
		n.engine.StepInto()
	case CmdFinish:
		n.engine.StepOut()
	case CmdAbort:
		n.engine.Abort()
	default:
		return n.Report()
	}
	n.wait()
	return n.Report()
}

// SetBreakpoint installs an active breakpoint at the viewed frame's
// current statement.  A non-empty condition is parsed immediately and a
// parse failure reports cleanly without installing anything.  The
// viewed frame's scope is retained as the condition's fallback context;
// at trigger time the condition evaluates in whichever frame is paused.
// The display offset is preserved so a breakpoint can be set in a
// caller while stepping a callee.
func (n *Navigator) SetBreakpoint(condSrc string) error {
	frame := n.ViewedFrame()
	if frame == nil || frame.PC == 0 {
		return &ParseStepError{Msg: "no current statement to break on"}
	}
	bp := &Breakpoint{Active: true}
	if condSrc != "" {
		cond, err := frame.Env.Runtime.Reader.ReadOne("<breakpoint>", condSrc)
		if err != nil {
			return parseStepError(err)
		}
		bp.Cond = cond
		bp.CondSrc = condSrc
		bp.CondEnv = frame.Env
	}
	frame.Code.SetBreak(frame.PC, bp)
	return nil
}

// ToggleBreakpoints applies mode to the material breakpoints on the
// viewed frame's current source line.  Like SetBreakpoint it preserves
// the display offset.
func (n *Navigator) ToggleBreakpoints(mode ToggleMode) {
	frame := n.ViewedFrame()
	if frame == nil {
		return
	}
	line := frame.Line()
	if line == 0 {
		return
	}
	frame.Code.Toggle(line, mode)
}
