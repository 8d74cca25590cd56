// Copyright © 2024 The rebug authors

package repl

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKey(t *testing.T) {
	tests := []struct {
		input string
		want  Key
	}{
		{" ", KeyNextStatement},
		{"\r", KeyFinish},
		{"\n", KeyFinish},
		{"c", KeyContinue},
		{"q", KeyAbort},
		{"\x03", KeyAbort},
		{"\x04", KeyAbort},
		{"b", KeySetBreak},
		{"r", KeyRemoveBreak},
		{"d", KeyDisableBreak},
		{"e", KeyEnableBreak},
		{"?", KeyHelp},
		{"\x1b[A", KeyViewCaller},
		{"\x1b[B", KeyViewCallee},
		{"\x1b[C", KeyStepIn},
		{"\x1b[D", KeyFinish},
		{"x", KeyUnknown},
		{"\x1b[Z", KeyUnknown},
		{"\x1bx", KeyUnknown},
	}
	for _, tt := range tests {
		key, err := DecodeKey(bufio.NewReader(strings.NewReader(tt.input)))
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, key, "input %q", tt.input)
	}
}

func TestDecodeKeySequence(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(" \x1b[Cc"))
	want := []Key{KeyNextStatement, KeyStepIn, KeyContinue}
	for _, w := range want {
		key, err := DecodeKey(r)
		require.NoError(t, err)
		assert.Equal(t, w, key)
	}
	_, err := DecodeKey(r)
	assert.Equal(t, io.EOF, err)
}

func TestDecodeKeyTruncatedEscape(t *testing.T) {
	_, err := DecodeKey(bufio.NewReader(strings.NewReader("\x1b[")))
	assert.Error(t, err)
}
