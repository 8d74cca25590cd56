// Copyright © 2024 The rebug authors

package script

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
)

// DebugAction is the command a Debugger returns from WaitIfPaused to
// resume a suspended evaluation.
type DebugAction int

const (
	// DebugContinue resumes free-running evaluation.
	DebugContinue DebugAction = iota
	// DebugStepInto pauses at the next statement regardless of depth.
	DebugStepInto
	// DebugStepOver pauses at the next statement at the same or lesser
	// call depth.
	DebugStepOver
	// DebugStepOut pauses at the next statement at a lesser call depth.
	DebugStepOut
	// DebugAbort unwinds the evaluation with an abort condition.
	DebugAbort
)

// AbortCondition tags the error value produced when a debugger aborts
// evaluation.
const AbortCondition = "debug-abort"

// TrapCondition tags the error value produced when a debugger's EnterFun
// hook intercepts a call.
const TrapCondition = "debug-trap"

// Debugger hooks into the evaluator.  All methods are invoked on the
// goroutine performing evaluation.
type Debugger interface {
	// IsEnabled gates all other hook calls.
	IsEnabled() bool
	// EnterFun is called after a user function's arguments are bound into
	// fenv and before its body runs.  Returning a non-nil error aborts
	// the call: the evaluator wraps the error into a TrapCondition error
	// value that propagates to the caller.
	EnterFun(fenv *Env, call *Value, fun *Value) error
	// Statement is called before each body-position form with a source
	// location.  Returning true suspends evaluation in WaitIfPaused.
	Statement(env *Env, expr *Value) bool
	// WaitIfPaused blocks until the controlling side supplies the next
	// action.
	WaitIfPaused(env *Env, expr *Value) DebugAction
	// LeaveFun is called after a user function's body completes, whether
	// normally or with an error value.
	LeaveFun(fenv *Env, fun *Value, ret *Value)
}

// Profiler annotates function application.  Start is called before the
// function runs and the returned func after it completes.
type Profiler interface {
	IsEnabled() bool
	Start(fun *Value) func()
}

// Library resolves source text by stream name.  Parsed buffers are
// registered with Put; file names fall back to the filesystem under the
// configured root.
type Library struct {
	Root string
	mem  map[string]string
}

// NewLibrary returns a Library rooted at dir ("" for the process working
// directory).
func NewLibrary(dir string) *Library {
	return &Library{Root: dir, mem: make(map[string]string)}
}

// Put registers in-memory source text under name, replacing any previous
// registration.
func (l *Library) Put(name, text string) {
	l.mem[name] = text
}

// LoadSource returns the text registered under name, reading from the
// filesystem when no in-memory registration exists.
func (l *Library) LoadSource(name string) (string, error) {
	if text, ok := l.mem[name]; ok {
		return text, nil
	}
	path := name
	if l.Root != "" && !filepath.IsAbs(name) {
		path = filepath.Join(l.Root, name)
	}
	buf, err := os.ReadFile(path) //#nosec G304
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Runtime holds state shared by every Env in one evaluation tree.
type Runtime struct {
	Stack    *CallStack
	Reader   *Reader
	Library  *Library
	Stderr   io.Writer
	Debugger Debugger
	Profiler Profiler
	numfun   atomic.Uint64
}

// StandardRuntime returns a Runtime with an empty call stack, a reader,
// and an in-memory source library.
func StandardRuntime() *Runtime {
	return &Runtime{
		Stack:   &CallStack{MaxHeight: 4096},
		Reader:  NewReader(),
		Library: NewLibrary(""),
		Stderr:  os.Stderr,
	}
}

func (r *Runtime) genFID(name string) string {
	n := r.numfun.Add(1)
	if name == "" {
		name = "lambda"
	}
	return fmt.Sprintf("%s#%03d", name, n)
}

// Env is one lexical scope.  Lookup walks the Parent chain.
type Env struct {
	Scope   map[string]*Value
	Parent  *Env
	Runtime *Runtime
}

// NewEnv returns a root environment with a fresh runtime when rt is nil.
func NewEnv(rt *Runtime) *Env {
	if rt == nil {
		rt = StandardRuntime()
	}
	env := &Env{Scope: make(map[string]*Value), Runtime: rt}
	registerBuiltins(env)
	return env
}

// Child returns a new scope nested inside env.
func (env *Env) Child() *Env {
	return &Env{Scope: make(map[string]*Value), Parent: env, Runtime: env.Runtime}
}

// Get resolves a symbol name, walking up the scope chain.
func (env *Env) Get(name string) (*Value, bool) {
	for e := env; e != nil; e = e.Parent {
		if v, ok := e.Scope[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Put binds name in this scope, shadowing outer bindings.
func (env *Env) Put(name string, v *Value) {
	env.Scope[name] = v
}

// Update rebinds the nearest existing binding of name.  It returns false
// when the name is unbound.
func (env *Env) Update(name string, v *Value) bool {
	for e := env; e != nil; e = e.Parent {
		if _, ok := e.Scope[name]; ok {
			e.Scope[name] = v
			return true
		}
	}
	return false
}

// Root returns the outermost environment in the chain.
func (env *Env) Root() *Env {
	e := env
	for e.Parent != nil {
		e = e.Parent
	}
	return e
}

// LoadString parses and evaluates source text, registering it with the
// runtime's library so the text can be recovered later.  It returns the
// value of the last form, or the first error value.
func (env *Env) LoadString(name, src string) *Value {
	forms, err := env.Runtime.Reader.Read(name, src)
	if err != nil {
		return env.ConditionErrorf("parse-error", "%v", err)
	}
	env.Runtime.Library.Put(name, src)
	return env.EvalProgram(forms)
}

// LoadFile reads, registers, and evaluates a source file.
func (env *Env) LoadFile(path string) *Value {
	src, err := env.Runtime.Library.LoadSource(path)
	if err != nil {
		return env.ConditionErrorf("load-error", "%v", err)
	}
	env.Runtime.Library.Put(path, src)
	forms, rerr := env.Runtime.Reader.Read(path, src)
	if rerr != nil {
		return env.ConditionErrorf("parse-error", "%v", rerr)
	}
	return env.EvalProgram(forms)
}
