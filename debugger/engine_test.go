// Copyright © 2024 The rebug authors

package debugger

import (
	"testing"

	"github.com/luthersystems/rebug/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineCodeCache(t *testing.T) {
	env := script.NewEnv(nil)
	fv := mustFun(t, env, "(defun f (x)\n  (+ x 1))", "f")

	e := NewEngine()
	code := e.CodeFor(fv)
	assert.Same(t, code, e.CodeFor(fv), "sibling activations share one table")
	assert.Equal(t, "f", code.Name)
	assert.Equal(t, "code.rebug", code.File)
}

func TestEngineLineBreakpoints(t *testing.T) {
	env := script.NewEnv(nil)
	fv := mustFun(t, env, "(defun f (x)\n  (+ x 1)\n  (* x 2))", "f")

	e := NewEngine()
	// Lines registered before the table exists apply when it is built.
	e.SetLineBreakpoints("code.rebug", []int{3})
	code := e.CodeFor(fv)
	require.NotNil(t, code.BreakAt(2))
	assert.Nil(t, code.BreakAt(1))

	// Replacing the file's breakpoints clears the old ones but leaves
	// interactively-set breakpoints alone.
	code.SetBreak(1, &Breakpoint{Active: true})
	e.SetLineBreakpoints("code.rebug", nil)
	assert.Nil(t, code.BreakAt(2))
	require.NotNil(t, code.BreakAt(1))
}

func TestEngineDisable(t *testing.T) {
	e := NewEngine()
	require.True(t, e.IsEnabled())
	e.Disable()
	assert.False(t, e.IsEnabled())
}
