// Copyright © 2024 The rebug authors

package debugger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luthersystems/rebug/script"
)

// Captured is the result of a successful capture-and-rewrite: the stored
// binding set and a replacement expression that rebinds the callee's
// parameters from the session store around the callee's body text.
type Captured struct {
	Set *BindingSet
	// Replacement is source text.  Evaluating it in a scope where the
	// store is installed reproduces the call's body with its arguments
	// bound.
	Replacement string
}

// CaptureAt performs the capture-and-rewrite transform.  The cursor is a
// byte offset into text that must fall inside a call expression.  The
// text preceding and including that call is evaluated in a child scope
// of env under a trap that intercepts exactly the target call after its
// arguments are bound, without running its body.  The resolved bindings
// are stored under a fresh session identifier and a replacement
// expression wrapping the callee's verbatim body text is emitted.
func CaptureAt(env *script.Env, store *Store, name, text string, cursor int) (*Captured, error) {
	forms, err := env.Runtime.Reader.Read(name, text)
	if err != nil {
		return nil, parseStepError(err)
	}
	env.Runtime.Library.Put(name, text)
	target := findCall(forms, cursor)
	if target == nil {
		return nil, &ParseStepError{
			Loc: &script.Location{File: name, Pos: cursor},
			Msg: "cursor is not inside a call expression",
		}
	}
	trap := &trapDebugger{file: name, pos: target.Source.Pos}
	return capture(env, store, trap, forms, text, callText(target, text))
}

// CaptureFrame reapplies the transform for one recorded call frame.  The
// original program text is re-evaluated under a trap keyed on the
// frame's call-site location, so calls made from function bodies defined
// in other source streams are still intercepted.  Stack capture uses
// this per fault level.
func CaptureFrame(env *script.Env, store *Store, name, text string, frame *script.CallFrame) (*Captured, error) {
	if frame.Source == nil {
		return nil, &DefMissingError{Name: frame.Name}
	}
	forms, err := env.Runtime.Reader.Read(name, text)
	if err != nil {
		return nil, parseStepError(err)
	}
	trap := &trapDebugger{file: frame.Source.File, pos: frame.Source.Pos}
	return capture(env, store, trap, forms, text, frame.Name)
}

// FirstCallOffset parses text and returns the byte offset of the first
// call expression in source order.  Surfaces use it to aim CaptureAt
// when the leading form is a special form rather than a call.
func FirstCallOffset(env *script.Env, name, text string) (int, error) {
	forms, err := env.Runtime.Reader.Read(name, text)
	if err != nil {
		return 0, parseStepError(err)
	}
	if call := firstCall(forms); call != nil && call.Source != nil {
		return call.Source.Pos, nil
	}
	return 0, &ParseStepError{
		Loc: &script.Location{File: name},
		Msg: "no call expression in input",
	}
}

// capture runs the trapped evaluation and assembles the stored binding
// set and replacement expression.  label names the target in stash
// failures.
func capture(env *script.Env, store *Store, trap *trapDebugger, forms []*script.Value, text, label string) (*Captured, error) {
	set, fun, err := runTrapped(env, trap, forms, text, label)
	if err != nil {
		return nil, err
	}
	body, err := bodyText(env, fun)
	if err != nil {
		return nil, err
	}
	set.CallText = storedCallText(env, trap.call)
	store.Put(set)
	return &Captured{Set: set, Replacement: replacement(set, body)}, nil
}

func parseStepError(err error) error {
	var syn *script.SyntaxError
	if errors.As(err, &syn) {
		return &ParseStepError{Loc: syn.Loc, Msg: syn.Msg}
	}
	return &ParseStepError{Msg: err.Error()}
}

// runTrapped evaluates forms with the trap installed and classifies the
// outcome: a sprung trap yields the captured bindings, completion
// without springing is a stash failure, and any other fault is wrapped
// with the text that produced it.
func runTrapped(env *script.Env, trap *trapDebugger, forms []*script.Value, text, label string) (*BindingSet, *script.Value, error) {
	scope := env.Child()
	prev := env.Runtime.Debugger
	env.Runtime.Debugger = trap
	ret := scope.EvalProgram(forms)
	env.Runtime.Debugger = prev

	if trap.set != nil {
		return trap.set, trap.fun, nil
	}
	if ret.Kind == script.KError {
		return nil, nil, &EvalError{Text: text, Inner: ret}
	}
	return nil, nil, &StashFailedError{Target: label}
}

func callText(call *script.Value, text string) string {
	if call.Source == nil || call.End <= call.Source.Pos || call.End > len(text) {
		return call.String()
	}
	return text[call.Source.Pos:call.End]
}

// storedCallText recovers the intercepted call's source text from the
// library entry for the file the call was parsed from, which may differ
// from the text that was re-evaluated.
func storedCallText(env *script.Env, call *script.Value) string {
	if call == nil {
		return ""
	}
	if call.Source == nil || call.End <= call.Source.Pos {
		return call.String()
	}
	src, err := env.Runtime.Library.LoadSource(call.Source.File)
	if err != nil || call.End > len(src) {
		return call.String()
	}
	return src[call.Source.Pos:call.End]
}

// bodyText resolves the callee's body source.  Builtins and functions
// whose definitions were never registered with the source library have
// no recoverable body.
func bodyText(env *script.Env, fun *script.Value) (string, error) {
	data := fun.Fun
	if data.Builtin != nil || data.Source == nil || data.BodyEnd <= data.BodyPos {
		return "", &DefMissingError{Name: funLabel(data)}
	}
	src, err := env.Runtime.Library.LoadSource(data.Source.File)
	if err != nil || data.BodyEnd > len(src) {
		return "", &DefMissingError{Name: funLabel(data)}
	}
	return src[data.BodyPos:data.BodyEnd], nil
}

func funLabel(data *script.FunData) string {
	if data.Name != "" {
		return data.Name
	}
	return data.FID
}

// replacement emits the scope-binding form.  Each parameter is rebound
// by looking the captured value up in the session store, and the body
// text is embedded verbatim as the let body.
func replacement(set *BindingSet, body string) string {
	var sb strings.Builder
	sb.WriteString("(let (")
	for i, b := range set.Bindings {
		if i > 0 {
			sb.WriteString("\n      ")
		}
		fmt.Fprintf(&sb, "(%s (%s %q '%s))", b.Name, BindingFun, set.ID, b.Name)
	}
	sb.WriteString(")\n  ")
	sb.WriteString(body)
	sb.WriteString(")")
	return sb.String()
}

// findCall returns the innermost call expression whose source span
// contains the cursor, nil when the cursor is outside every call.
// Special forms are not calls.
func findCall(forms []*script.Value, cursor int) *script.Value {
	var best *script.Value
	var walk func(v *script.Value)
	walk = func(v *script.Value) {
		if v.Kind != script.KSExpr {
			return
		}
		if isCall(v) && v.Source != nil && v.Source.Pos <= cursor && cursor < v.End {
			best = v
		}
		for _, cell := range v.Cells {
			walk(cell)
		}
	}
	for _, form := range forms {
		walk(form)
	}
	return best
}

// firstCall returns the first call expression in pre-order, nil when the
// forms contain none.
func firstCall(forms []*script.Value) *script.Value {
	var found *script.Value
	var walk func(v *script.Value)
	walk = func(v *script.Value) {
		if found != nil || v.Kind != script.KSExpr {
			return
		}
		if isCall(v) && v.Source != nil {
			found = v
			return
		}
		for _, cell := range v.Cells {
			walk(cell)
		}
	}
	for _, form := range forms {
		walk(form)
	}
	return found
}

func isCall(v *script.Value) bool {
	if len(v.Cells) == 0 {
		return false
	}
	head := v.Cells[0]
	if head.Kind == script.KSymbol && script.IsSpecialForm(head.Str) {
		return false
	}
	return true
}

var errTrapped = errors.New("target call intercepted")

// trapDebugger intercepts the first call expression parsed at a given
// source location, capturing the callee's bound parameters after
// defaults, keywords, and rest arguments have been resolved, and aborts
// the call before its body runs.  Matching by location rather than node
// identity lets a re-evaluation intercept calls inside function bodies
// that were parsed from earlier source streams.
type trapDebugger struct {
	file string
	pos  int
	call *script.Value
	set  *BindingSet
	fun  *script.Value
}

func (d *trapDebugger) IsEnabled() bool { return true }

func (d *trapDebugger) EnterFun(fenv *script.Env, call *script.Value, fun *script.Value) error {
	if d.set != nil || call.Source == nil {
		return nil
	}
	if call.Source.File != d.file || call.Source.Pos != d.pos {
		return nil
	}
	d.call = call
	set := &BindingSet{FuncName: funLabel(fun.Fun)}
	if fun.Fun.Formals != nil {
		for _, name := range fun.Fun.Formals.Names() {
			v, ok := fenv.Get(name)
			if !ok {
				continue
			}
			set.Bindings = append(set.Bindings, Binding{Name: name, Value: v})
		}
	}
	d.set = set
	d.fun = fun
	return errTrapped
}

func (d *trapDebugger) Statement(env *script.Env, expr *script.Value) bool { return false }

func (d *trapDebugger) WaitIfPaused(env *script.Env, expr *script.Value) script.DebugAction {
	return script.DebugContinue
}

func (d *trapDebugger) LeaveFun(fenv *script.Env, fun *script.Value, ret *script.Value) {}
