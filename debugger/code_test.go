// Copyright © 2024 The rebug authors

package debugger

import (
	"testing"

	"github.com/luthersystems/rebug/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFun(t *testing.T, env *script.Env, src, name string) *script.Value {
	t.Helper()
	ret := env.LoadString("code.rebug", src)
	require.NotEqual(t, script.KError, ret.Kind, ret.String())
	fv, ok := env.Get(name)
	require.True(t, ok)
	require.Equal(t, script.KFun, fv.Kind)
	return fv
}

func codeFor(t *testing.T, src, name string) *FrameCode {
	t.Helper()
	env := script.NewEnv(nil)
	fv := mustFun(t, env, src, name)
	return NewFrameCode(fv.Fun.FID, name, "code.rebug", fv.Fun.Body)
}

func TestFrameCodeFlatten(t *testing.T) {
	src := `(defun f (x)
  (one x)
  (let ((y 1))
    (two y)
    (progn
      (three)
      (four)))
  (while (five)
    (six))
  (seven))`
	code := codeFor(t, src, "f")

	// Statements are body-position forms in pre-order: nested let,
	// progn, and while bodies are included, argument subexpressions and
	// binding lists are not.
	want := []string{
		"(one x)",
		"(let ((y 1)) (two y) (progn (three) (four)))",
		"(two y)",
		"(progn (three) (four))",
		"(three)",
		"(four)",
		"(while (five) (six))",
		"(six)",
		"(seven)",
	}
	require.Equal(t, len(want), code.Len())
	for i, s := range want {
		assert.Equal(t, s, code.Statement(i+1).String(), "statement %d", i+1)
	}

	// Index lookup is by expression identity and matches table order.
	for i := 1; i <= code.Len(); i++ {
		assert.Equal(t, i, code.IndexOf(code.Statement(i)))
	}
	assert.Equal(t, 0, code.IndexOf(script.Symbol("one")))
}

func TestFrameCodeLines(t *testing.T) {
	src := `(defun f (x)
  (one)
  (two))`
	code := codeFor(t, src, "f")
	assert.Equal(t, 2, code.LineFor(1))
	assert.Equal(t, 3, code.LineFor(2))
	assert.Equal(t, 0, code.LineFor(0))
	assert.Equal(t, 0, code.LineFor(3))
}

func TestStatementRangeExactLine(t *testing.T) {
	src := `(defun f (x)
  (one)
  (two)
  (progn (three) (four) (five))
  (six))`
	code := codeFor(t, src, "f")

	lo, hi := code.StatementRange(2)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 1, hi)

	// Line 4 holds the progn statement and its three body statements.
	lo, hi = code.StatementRange(4)
	assert.Equal(t, 3, lo)
	assert.Equal(t, 6, hi)

	lo, hi = code.StatementRange(5)
	assert.Equal(t, 7, lo)
	assert.Equal(t, 7, hi)
}

func TestStatementRangePrecedingLine(t *testing.T) {
	src := `(defun f (x)
  (one)
  (two))`
	code := codeFor(t, src, "f")

	// A target before every statement collapses to [1,1].
	lo, hi := code.StatementRange(1)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 1, hi)

	// A target past the last statement collapses to the last statement.
	lo, hi = code.StatementRange(99)
	assert.Equal(t, 2, lo)
	assert.Equal(t, 2, hi)
}

func TestStatementRangeBetweenLines(t *testing.T) {
	src := "(defun f (x)\n  (one)\n\n\n  (two))"
	code := codeFor(t, src, "f")

	// Lines 3 and 4 hold no statement: collapse to the preceding one.
	lo, hi := code.StatementRange(3)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 1, hi)
	lo, hi = code.StatementRange(4)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 1, hi)
}

func TestStatementRangeContiguousNonEmpty(t *testing.T) {
	src := `(defun f (x)
  (one)
  (progn (two)
    (three))
  (while (a) (four) (five))
  (six))`
	code := codeFor(t, src, "f")
	for line := 1; line <= 8; line++ {
		lo, hi := code.StatementRange(line)
		assert.LessOrEqual(t, lo, hi, "line %d", line)
		assert.GreaterOrEqual(t, lo, 1, "line %d", line)
	}
}

func TestFrameCodeEmptyBody(t *testing.T) {
	code := NewFrameCode("fid", "f", "code.rebug", nil)
	assert.Equal(t, 0, code.Len())
	lo, hi := code.StatementRange(10)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 1, hi)
}
