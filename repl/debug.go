// Copyright © 2024 The rebug authors

package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/luthersystems/rebug/debugger"
	"github.com/luthersystems/rebug/script"
	"golang.org/x/term"
)

const keyHelp = "space=next  c=continue  right=step-in  enter=finish  " +
	"up/down=view caller/callee  b=break  r/d/e=remove/disable/enable breakpoints  " +
	"q=abort  ?=help"

// DebugOption configures RunNavigator.
type DebugOption func(*debugSession)

// WithDebugInput sets the keystroke source.  This is primarily useful
// for testing, where a pipe replaces the terminal.
func WithDebugInput(r io.Reader) DebugOption {
	return func(s *debugSession) { s.in = r }
}

// WithDebugOutput sets the writer for the stepping surface.
func WithDebugOutput(w io.Writer) DebugOption {
	return func(s *debugSession) { s.out = w }
}

// WithDebugWidth sets the wrap width for status text.
func WithDebugWidth(n int) DebugOption {
	return func(s *debugSession) { s.width = n }
}

type debugSession struct {
	nav    *debugger.Navigator
	in     io.Reader
	out    io.Writer
	width  int
	keys   *bufio.Reader
	render *Renderer
}

// RunNavigator launches text under a stepping navigator and drives it
// with single-key commands until the run terminates.  It returns the
// final value, or a nil value when the run was aborted, or an error
// when the run terminated with a fault.
func RunNavigator(env *script.Env, name, text string, opts ...DebugOption) (*script.Value, error) {
	s := &debugSession{in: os.Stdin, out: os.Stderr, width: 80}
	for _, opt := range opts {
		opt(s)
	}

	nav, err := debugger.Launch(env, name, text)
	if err != nil {
		return nil, err
	}
	s.nav = nav
	s.keys = bufio.NewReader(s.in)
	s.render = NewRenderer(s.out, s.width)

	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		old, err := term.MakeRaw(int(f.Fd()))
		if err == nil {
			defer term.Restore(int(f.Fd()), old) //nolint:errcheck // best-effort cleanup
		}
	}

	s.render.Render(nav.Report(), "")
	s.loop()

	rep := nav.Report()
	if rep.Fault != nil {
		return nil, script.GoError(rep.Fault)
	}
	return rep.Value, nil
}

// loop reads keystrokes until the navigator terminates or input ends.
func (s *debugSession) loop() {
	for s.nav.State() == debugger.StateRunning {
		key, err := DecodeKey(s.keys)
		if err != nil {
			// Input ended with the run suspended; abort so the eval
			// goroutine unwinds.
			s.nav.Dispatch(debugger.CmdAbort)
			s.redraw("")
			return
		}
		if key == KeyUnknown {
			continue
		}
		s.handle(key)
	}
}

func (s *debugSession) handle(key Key) {
	status := ""
	switch key {
	case KeyNextStatement:
		s.nav.Dispatch(debugger.CmdNextStatement)
	case KeyContinue:
		s.nav.Dispatch(debugger.CmdContinue)
	case KeyStepIn:
		s.nav.Dispatch(debugger.CmdStepIn)
	case KeyFinish:
		s.nav.Dispatch(debugger.CmdFinish)
	case KeyViewCaller:
		s.nav.Dispatch(debugger.CmdViewCaller)
	case KeyViewCallee:
		s.nav.Dispatch(debugger.CmdViewCallee)
	case KeyAbort:
		s.nav.Dispatch(debugger.CmdAbort)
	case KeySetBreak:
		status = s.setBreak()
	case KeyRemoveBreak:
		s.nav.ToggleBreakpoints(debugger.BreakRemove)
		status = "breakpoints removed"
	case KeyDisableBreak:
		s.nav.ToggleBreakpoints(debugger.BreakDisable)
		status = "breakpoints disabled"
	case KeyEnableBreak:
		s.nav.ToggleBreakpoints(debugger.BreakEnable)
		status = "breakpoints enabled"
	case KeyHelp:
		status = keyHelp
	}
	s.redraw(status)
}

func (s *debugSession) redraw(status string) {
	s.render.Clear()
	s.render.Render(s.nav.Report(), status)
}

// setBreak prompts for an optional condition and installs a breakpoint
// at the viewed frame's current statement.
func (s *debugSession) setBreak() string {
	fmt.Fprint(s.out, "condition (empty for none): ") //nolint:errcheck // best-effort prompt
	cond, err := s.readLine()
	fmt.Fprint(s.out, "\r\n") //nolint:errcheck // best-effort prompt
	// The prompt consumed a line the renderer didn't draw; account for
	// it so the next Clear erases it too.
	s.render.lastLines++
	if err != nil {
		return "breakpoint not set"
	}
	if err := s.nav.SetBreakpoint(cond); err != nil {
		return err.Error()
	}
	if cond == "" {
		return "breakpoint set"
	}
	return "breakpoint set with condition " + cond
}

// readLine reads a raw-mode line, echoing input and honoring backspace.
func (s *debugSession) readLine() (string, error) {
	var line []byte
	for {
		b, err := s.keys.ReadByte()
		if err != nil {
			return "", err
		}
		switch b {
		case '\r', '\n':
			return string(line), nil
		case 0x7f, '\b':
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Fprint(s.out, "\b \b") //nolint:errcheck // best-effort echo
			}
		case 0x03:
			return "", fmt.Errorf("interrupted")
		default:
			line = append(line, b)
			fmt.Fprintf(s.out, "%c", b) //nolint:errcheck // best-effort echo
		}
	}
}
