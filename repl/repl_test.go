// Copyright © 2024 The rebug authors

package repl

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runReplWithString(t *testing.T, input string) string {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer inW.Close() //nolint:errcheck // test cleanup
		_, _ = io.WriteString(inW, input)
	}()

	go func() {
		RunRepl("rebug> ", WithStdin(inR), WithStderr(outW))
		inR.Close()  //nolint:errcheck,gosec // test cleanup
		outW.Close() //nolint:errcheck,gosec // test cleanup
	}()

	var output bytes.Buffer
	_, _ = io.Copy(&output, outR)
	outR.Close() //nolint:errcheck,gosec // test cleanup

	return output.String()
}

func TestEnsureHistoryFilePermissions_CreatesWithRestrictedMode(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".rebug_history")

	// File does not exist yet.
	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err, "history file should be created")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "new history file should have mode 0600")
}

func TestEnsureHistoryFilePermissions_RestrictsExistingFile(t *testing.T) {
	dir := t.TempDir()
	histFile := filepath.Join(dir, ".rebug_history")

	// Create the file with overly permissive mode.
	err := os.WriteFile(histFile, []byte("some history"), 0644)
	require.NoError(t, err)

	ensureHistoryFilePermissions(histFile)

	info, err := os.Stat(histFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "existing history file should be restricted to 0600")

	// Verify contents are preserved.
	data, err := os.ReadFile(histFile)
	require.NoError(t, err)
	assert.Equal(t, "some history", string(data))
}

func TestEnsureHistoryFilePermissions_EmptyPathNoOp(t *testing.T) {
	// Should not panic or error with empty path.
	ensureHistoryFilePermissions("")
}

func TestRunRepl(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple Addition",
			input:    "(+ 1 1)",
			expected: "2\n",
		},
		{
			name:     "Error",
			input:    "fnord",
			expected: "unbound symbol",
		},
		{
			name:     "Definitions Persist",
			input:    "(defun inc (x) (+ x 1))\n(inc 41)",
			expected: "42",
		},
		{
			name:     "Help",
			input:    ":help",
			expected: ":stash",
		},
		{
			name:     "Unknown Command",
			input:    ":frobnicate",
			expected: "unknown command",
		},
		{
			name:     "No Sessions",
			input:    ":sessions",
			expected: "(no sessions)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := runReplWithString(t, tc.input)
			require.Contains(t, got, tc.expected)
		})
	}
}

func TestRunReplStash(t *testing.T) {
	input := "(defun f (x &optional (y 1)) (+ x y))\n:stash (f 3)\n:sessions"
	got := runReplWithString(t, input)

	assert.Contains(t, got, "session ")
	assert.Contains(t, got, "captured from f")
	assert.Contains(t, got, "rebug-binding")
	// Optional default promoted during capture.
	assert.Contains(t, got, "y")
	assert.NotContains(t, got, "(no sessions)")
}

func TestRunReplStashUntakenBranch(t *testing.T) {
	input := "(defun g (n) n)\n:stash (if false (g 1) 2)"
	got := runReplWithString(t, input)
	assert.Contains(t, got, "stashing failed")
}

func TestRunReplStack(t *testing.T) {
	input := `(defun inner (n) (error 'boom "n too big"))
(defun outer (n) (inner (+ n 1)))
:stack (outer 10)
:sessions`
	got := runReplWithString(t, input)

	assert.Contains(t, got, "boom")
	assert.Contains(t, got, "#1  outer")
	assert.Contains(t, got, "#2  inner")
}

func TestRunReplStackNoFault(t *testing.T) {
	got := runReplWithString(t, ":stack (+ 1 2)")
	assert.Contains(t, got, "no fault: nothing captured")
}

func TestRunReplBindingLookup(t *testing.T) {
	// Capture a call, then read a binding back through the session
	// builtin using the printed id.
	input := "(defun f (x) (* x x))\n:stash (f 7)"
	got := runReplWithString(t, input)
	assert.Contains(t, got, "x")
	assert.Contains(t, got, "7")
}
