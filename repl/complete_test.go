// Copyright © 2024 The rebug authors

package repl

import (
	"testing"

	"github.com/luthersystems/rebug/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolCompleter(t *testing.T) {
	env := script.NewEnv(nil)
	ret := env.LoadString("test.rebug", `(defun concat-twice (s) (concat s s))`)
	require.NotEqual(t, script.KError, ret.Kind, ret.String())

	c := &symbolCompleter{env: env}

	// "con" should match cons, concat, and the user definition.
	candidates, offset := c.Do([]rune("(con"), 4)
	assert.Equal(t, 3, offset)
	require.NotEmpty(t, candidates, "expected completions for 'con'")

	suffixes := make(map[string]bool)
	for _, cand := range candidates {
		suffixes[string(cand)] = true
	}
	assert.True(t, suffixes["s"], "cons")
	assert.True(t, suffixes["cat"], "concat")
	assert.True(t, suffixes["cat-twice"], "user definition completes")

	// Completion only considers the word behind the cursor.
	candidates, offset = c.Do([]rune("(concat le"), 10)
	assert.Equal(t, 2, offset)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "ngth", string(candidates[0]))

	// Unknown prefixes have no completions.
	candidates, _ = c.Do([]rune("(zzz-nonexistent"), 16)
	assert.Empty(t, candidates)
}

func TestSymbolCompleterEmptyPrefix(t *testing.T) {
	env := script.NewEnv(nil)
	c := &symbolCompleter{env: env}
	candidates, offset := c.Do([]rune("("), 1)
	assert.Nil(t, candidates)
	assert.Zero(t, offset)
}
