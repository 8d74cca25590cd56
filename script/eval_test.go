// Copyright © 2024 The rebug authors

package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalString(t *testing.T, src string) *Value {
	t.Helper()
	env := NewEnv(nil)
	return env.LoadString("test.rebug", src)
}

func TestEvalBasics(t *testing.T) {
	tests := []struct {
		src  string
		want *Value
	}{
		{"42", Int(42)},
		{"(+ 1 2 3)", Int(6)},
		{"(- 10 4)", Int(6)},
		{"(- 5)", Int(-5)},
		{"(* 2 3.5)", Float(7)},
		{"(/ 10 4)", Float(2.5)},
		{"(= 2 2.0)", Bool(true)},
		{"(< 1 2)", Bool(true)},
		{"(not false)", Bool(true)},
		{"(if true 1 2)", Int(1)},
		{"(if false 1 2)", Int(2)},
		{"(if false 1)", Nil()},
		{"(quote (a b))", SExpr([]*Value{Symbol("a"), Symbol("b")})},
		{"'sym", Symbol("sym")},
		{"(progn 1 2 3)", Int(3)},
		{"(and 1 2)", Int(2)},
		{"(and 1 false 2)", Bool(false)},
		{"(or false 5)", Int(5)},
		{"(or false false)", Bool(false)},
		{"(length (list 1 2 3))", Int(3)},
		{"(first (list 1 2))", Int(1)},
		{"(nth (list 10 20 30) 2)", Int(30)},
		{`(concat "a" "b")`, String("ab")},
		{":kw", Symbol(":kw")},
	}
	for _, tt := range tests {
		got := evalString(t, tt.src)
		require.NotEqual(t, KError, got.Kind, "%s: %s", tt.src, got)
		assert.True(t, Equal(tt.want, got), "%s: want %s got %s", tt.src, tt.want, got)
	}
}

func TestEvalLet(t *testing.T) {
	// Bindings are sequential: later bindings see earlier ones.
	got := evalString(t, "(let ((x 1) (y (+ x 1))) (* x y))")
	assert.True(t, Equal(Int(2), got), got.String())
}

func TestEvalSet(t *testing.T) {
	got := evalString(t, "(let ((x 1)) (set! x 5) x)")
	assert.True(t, Equal(Int(5), got), got.String())

	got = evalString(t, "(set! nope 1)")
	require.Equal(t, KError, got.Kind)
	assert.Equal(t, "unbound-symbol", got.Condition())
}

func TestEvalWhile(t *testing.T) {
	src := `
(let ((i 0) (acc 0))
  (while (< i 5)
    (set! acc (+ acc i))
    (set! i (+ i 1)))
  acc)`
	got := evalString(t, src)
	assert.True(t, Equal(Int(10), got), got.String())
}

func TestEvalDefun(t *testing.T) {
	got := evalString(t, "(defun f (x) (+ x 1)) (f 2)")
	assert.True(t, Equal(Int(3), got), got.String())
}

func TestEvalOptionalDefaults(t *testing.T) {
	src := "(defun f (x &optional (y 1)) (+ x y))"
	got := evalString(t, src+" (f 3)")
	assert.True(t, Equal(Int(4), got), got.String())
	got = evalString(t, src+" (f 3 10)")
	assert.True(t, Equal(Int(13), got), got.String())
}

func TestEvalKeywordArgs(t *testing.T) {
	src := "(defun greet (name &key (sep \", \") (punct \"!\")) (concat name sep punct))"
	got := evalString(t, src+` (greet "ada" :punct "?")`)
	assert.True(t, Equal(String("ada, ?"), got), got.String())

	got = evalString(t, src+` (greet "ada" :bogus 1)`)
	require.Equal(t, KError, got.Kind)
	assert.Equal(t, "arity-error", got.Condition())
}

func TestEvalRestArgs(t *testing.T) {
	got := evalString(t, "(defun f (x &rest more) (length more)) (f 1 2 3 4)")
	assert.True(t, Equal(Int(3), got), got.String())
}

func TestEvalDefaultSeesEarlierParam(t *testing.T) {
	got := evalString(t, "(defun f (x &optional (y (* x 2))) (+ x y)) (f 3)")
	assert.True(t, Equal(Int(9), got), got.String())
}

func TestEvalClosures(t *testing.T) {
	src := `
(defun adder (n) (lambda (x) (+ x n)))
(let ((add2 (adder 2)))
  (add2 40))`
	got := evalString(t, src)
	assert.True(t, Equal(Int(42), got), got.String())
}

func TestEvalErrorCarriesStack(t *testing.T) {
	src := `
(defun inner (x) (error 'boom "went wrong"))
(defun outer (x) (inner x))
(outer 1)`
	got := evalString(t, src)
	require.Equal(t, KError, got.Kind)
	assert.Equal(t, "boom", got.Condition())
	require.NotNil(t, got.Stack)
	require.Equal(t, 3, got.Stack.Height())
	assert.Equal(t, "outer", got.Stack.Frames[0].Name)
	assert.Equal(t, "inner", got.Stack.Frames[1].Name)
	assert.Equal(t, "error", got.Stack.Frames[2].Name)
}

func TestEvalErrorConditions(t *testing.T) {
	tests := []struct {
		src  string
		cond string
	}{
		{"undefined-sym", "unbound-symbol"},
		{"(f-missing 1)", "unbound-symbol"},
		{"(1 2 3)", "not-callable"},
		{"(/ 1 0)", "divide-by-zero"},
		{`(+ 1 "x")`, "type-error"},
		{"(defun f (x y) x) (f 1)", "arity-error"},
		{"(defun f (x) x) (f 1 2)", "arity-error"},
	}
	for _, tt := range tests {
		got := evalString(t, tt.src)
		require.Equal(t, KError, got.Kind, tt.src)
		assert.Equal(t, tt.cond, got.Condition(), tt.src)
	}
}

func TestFunBodySpan(t *testing.T) {
	src := "(defun f (x)\n  (+ x 1)\n  (* x 2))"
	env := NewEnv(nil)
	ret := env.LoadString("span.rebug", src)
	require.NotEqual(t, KError, ret.Kind, ret.String())

	fv, ok := env.Get("f")
	require.True(t, ok)
	require.Equal(t, KFun, fv.Kind)
	assert.Equal(t, "(+ x 1)\n  (* x 2)", src[fv.Fun.BodyPos:fv.Fun.BodyEnd])
}

func TestLibraryRoundTrip(t *testing.T) {
	env := NewEnv(nil)
	env.LoadString("mem.rebug", "(+ 1 2)")
	text, err := env.Runtime.Library.LoadSource("mem.rebug")
	require.NoError(t, err)
	assert.Equal(t, "(+ 1 2)", text)
}

type recordingDebugger struct {
	statements []string
	actions    []DebugAction
	entered    []string
}

func (d *recordingDebugger) IsEnabled() bool { return true }

func (d *recordingDebugger) EnterFun(fenv *Env, call *Value, fun *Value) error {
	if fun.Fun.Builtin == nil {
		d.entered = append(d.entered, fun.Fun.Name)
	}
	return nil
}

func (d *recordingDebugger) Statement(env *Env, expr *Value) bool {
	d.statements = append(d.statements, expr.String())
	return len(d.actions) > 0
}

func (d *recordingDebugger) WaitIfPaused(env *Env, expr *Value) DebugAction {
	action := d.actions[0]
	d.actions = d.actions[1:]
	return action
}

func (d *recordingDebugger) LeaveFun(fenv *Env, fun *Value, ret *Value) {}

func TestDebuggerStatementHook(t *testing.T) {
	env := NewEnv(nil)
	dbg := &recordingDebugger{}
	env.Runtime.Debugger = dbg

	src := "(defun f (x)\n  (let ((y 1))\n    (+ x y)\n    (* x y)))\n(f 2)"
	ret := env.LoadString("dbg.rebug", src)
	require.NotEqual(t, KError, ret.Kind, ret.String())

	// Statements fire for body-position forms inside the function and the
	// nested let, not for top-level forms or argument subexpressions.
	assert.Equal(t, []string{
		"(let ((y 1)) (+ x y) (* x y))",
		"(+ x y)",
		"(* x y)",
	}, dbg.statements)
	assert.Equal(t, []string{"f"}, dbg.entered)
}

func TestDebuggerAbort(t *testing.T) {
	env := NewEnv(nil)
	dbg := &recordingDebugger{actions: []DebugAction{DebugAbort}}
	env.Runtime.Debugger = dbg

	ret := env.LoadString("abort.rebug", "(defun f (x) (+ x 1) (* x 2)) (f 1)")
	require.Equal(t, KError, ret.Kind)
	assert.Equal(t, AbortCondition, ret.Condition())
}

func TestDebuggerTrap(t *testing.T) {
	env := NewEnv(nil)
	env.Runtime.Debugger = &trapAll{}

	ret := env.LoadString("trap.rebug", "(defun f (x) x) (f 1)")
	require.Equal(t, KError, ret.Kind)
	assert.Equal(t, TrapCondition, ret.Condition())
}

type trapAll struct{}

func (d *trapAll) IsEnabled() bool { return true }
func (d *trapAll) EnterFun(fenv *Env, call *Value, fun *Value) error {
	return assert.AnError
}
func (d *trapAll) Statement(env *Env, expr *Value) bool              { return false }
func (d *trapAll) WaitIfPaused(env *Env, expr *Value) DebugAction    { return DebugContinue }
func (d *trapAll) LeaveFun(fenv *Env, fun *Value, ret *Value)        {}
