// Copyright © 2024 The rebug authors

package debugger

import (
	"strings"
	"testing"

	"github.com/luthersystems/rebug/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cursorAt(t *testing.T, text, needle string) int {
	t.Helper()
	i := strings.Index(text, needle)
	require.GreaterOrEqual(t, i, 0, "needle %q", needle)
	return i + 1 // inside the expression, past the open paren
}

func TestCaptureDefaults(t *testing.T) {
	src := "(defun f (x &optional (y 1)) (+ x y))\n(f 3)"
	env := script.NewEnv(nil)
	store := NewStore()

	c, err := CaptureAt(env, store, "cap.rebug", src, cursorAt(t, src, "(f 3)"))
	require.NoError(t, err)

	// Defaults are resolved before capture: y is bound even though the
	// call never passed it.
	require.Equal(t, []string{"x", "y"}, c.Set.Names())
	x, _ := c.Set.Lookup("x")
	y, _ := c.Set.Lookup("y")
	assert.True(t, script.Equal(script.Int(3), x))
	assert.True(t, script.Equal(script.Int(1), y))
	assert.Equal(t, "f", c.Set.FuncName)
	assert.Equal(t, "(f 3)", c.Set.CallText)
	assert.NotEmpty(t, c.Set.ID)

	// The replacement wraps the body text verbatim and evaluates to the
	// call's value in a fresh scope with the store installed.
	assert.Contains(t, c.Replacement, "(+ x y)")
	fresh := script.NewEnv(nil)
	store.Install(fresh)
	ret := fresh.LoadString("replay.rebug", c.Replacement)
	require.NotEqual(t, script.KError, ret.Kind, ret.String())
	assert.True(t, script.Equal(script.Int(4), ret), ret.String())
}

func TestCaptureRoundTrip(t *testing.T) {
	src := "(defun g (a &key (mode 'fast) &rest extra) (list a mode extra))\n" +
		"(g 7 :mode 'slow 1 2)"
	env := script.NewEnv(nil)
	store := NewStore()

	c, err := CaptureAt(env, store, "cap.rebug", src, cursorAt(t, src, "(g 7"))
	require.NoError(t, err)

	// Re-evaluating the replacement reproduces bindings observably equal
	// to the captured ones: the body lists its parameters back out.
	fresh := script.NewEnv(nil)
	store.Install(fresh)
	ret := fresh.LoadString("replay.rebug", c.Replacement)
	require.NotEqual(t, script.KError, ret.Kind, ret.String())
	require.Equal(t, script.KSExpr, ret.Kind)
	require.Len(t, ret.Cells, len(c.Set.Names()))

	for i, name := range c.Set.Names() {
		captured, ok := c.Set.Lookup(name)
		require.True(t, ok)
		assert.True(t, script.Equal(captured, ret.Cells[i]), "binding %s", name)
	}
}

func TestCaptureBodyNeverRuns(t *testing.T) {
	src := "(defun f (x) (print \"side effect\") (error 'boom \"body ran\"))\n(f 1)"
	env := script.NewEnv(nil)
	store := NewStore()

	c, err := CaptureAt(env, store, "cap.rebug", src, cursorAt(t, src, "(f 1)"))
	require.NoError(t, err)
	x, ok := c.Set.Lookup("x")
	require.True(t, ok)
	assert.True(t, script.Equal(script.Int(1), x))
}

func TestCaptureStashFailed(t *testing.T) {
	src := "(defun f (x) x)\n(if false (f 1) 2)"
	env := script.NewEnv(nil)
	store := NewStore()

	_, err := CaptureAt(env, store, "cap.rebug", src, cursorAt(t, src, "(f 1)"))
	var stash *StashFailedError
	require.ErrorAs(t, err, &stash)
	assert.Contains(t, stash.Error(), "(f 1)")
}

func TestCaptureEvalError(t *testing.T) {
	src := "(defun f (x) x)\n(error 'boom \"before the call\")\n(f 1)"
	env := script.NewEnv(nil)
	store := NewStore()

	_, err := CaptureAt(env, store, "cap.rebug", src, cursorAt(t, src, "(f 1)"))
	var evalErr *EvalError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "boom", evalErr.Inner.Condition())
}

func TestCaptureDefMissing(t *testing.T) {
	src := "(+ 1 2)"
	env := script.NewEnv(nil)
	store := NewStore()

	// Builtins have no recoverable body text.
	_, err := CaptureAt(env, store, "cap.rebug", src, 1)
	var missing *DefMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "+", missing.Name)
}

func TestCaptureParseStep(t *testing.T) {
	env := script.NewEnv(nil)
	store := NewStore()

	// Unparsable text.
	_, err := CaptureAt(env, store, "cap.rebug", "(f 1", 1)
	var parseErr *ParseStepError
	require.ErrorAs(t, err, &parseErr)

	// Cursor outside any call expression.
	src := "(defun f (x) x)\n42"
	_, err = CaptureAt(env, store, "cap.rebug", src, strings.Index(src, "42"))
	require.ErrorAs(t, err, &parseErr)
}

func TestFirstCallOffset(t *testing.T) {
	env := script.NewEnv(nil)

	// The leading form is a special form; the first call is nested.
	src := "(if false (g 1) 2)"
	off, err := FirstCallOffset(env, "first.rebug", src)
	require.NoError(t, err)
	assert.Equal(t, strings.Index(src, "(g 1)"), off)

	off, err = FirstCallOffset(env, "first.rebug", "(f 3)")
	require.NoError(t, err)
	assert.Equal(t, 0, off)

	var parseErr *ParseStepError
	_, err = FirstCallOffset(env, "first.rebug", "(if true 1 2)")
	require.ErrorAs(t, err, &parseErr)
}

func TestCaptureUntakenBranch(t *testing.T) {
	// Aiming the cursor with FirstCallOffset makes the untaken-branch
	// case reach the stash-failure path instead of a cursor error.
	env := script.NewEnv(nil)
	store := NewStore()

	ret := env.LoadString("defs.rebug", "(defun g (y) y)")
	require.NotEqual(t, script.KError, ret.Kind)

	text := "(if false (g 1) 2)"
	cursor, err := FirstCallOffset(env, "branch.rebug", text)
	require.NoError(t, err)

	_, err = CaptureAt(env, store, "branch.rebug", text, cursor)
	var stash *StashFailedError
	require.ErrorAs(t, err, &stash)
	assert.Contains(t, stash.Error(), "(g 1)")
}

func TestCaptureInnermostCall(t *testing.T) {
	src := "(defun f (x) x)\n(defun g (y) y)\n(f (g 9))"
	env := script.NewEnv(nil)
	store := NewStore()

	c, err := CaptureAt(env, store, "cap.rebug", src, cursorAt(t, src, "(g 9)"))
	require.NoError(t, err)
	assert.Equal(t, "g", c.Set.FuncName)

	c, err = CaptureAt(env, store, "cap.rebug", src, cursorAt(t, src, "(f (g 9))"))
	require.NoError(t, err)
	assert.Equal(t, "f", c.Set.FuncName)
}
