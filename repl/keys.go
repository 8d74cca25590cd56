// Copyright © 2024 The rebug authors

package repl

import (
	"bufio"
)

// Key is one decoded keystroke on the stepping surface.
type Key int

const (
	KeyUnknown Key = iota
	// KeyNextStatement (space) advances one statement, over calls.
	KeyNextStatement
	// KeyContinue (c) runs to the next triggered breakpoint.
	KeyContinue
	// KeyStepIn (right arrow) enters the call at the current statement.
	KeyStepIn
	// KeyFinish (enter or left arrow) runs the current frame to
	// completion and resumes the caller.
	KeyFinish
	// KeyViewCaller (up arrow) views one frame outward.
	KeyViewCaller
	// KeyViewCallee (down arrow) views one frame back inward.
	KeyViewCallee
	// KeyAbort (q, ctrl-c, ctrl-d) discards the run.
	KeyAbort
	// KeySetBreak (b) sets a breakpoint at the viewed statement.
	KeySetBreak
	// KeyRemoveBreak (r) removes breakpoints on the viewed line.
	KeyRemoveBreak
	// KeyDisableBreak (d) disables breakpoints on the viewed line.
	KeyDisableBreak
	// KeyEnableBreak (e) enables breakpoints on the viewed line.
	KeyEnableBreak
	// KeyHelp (?) shows the key map.
	KeyHelp
)

// DecodeKey reads one keystroke from r, consuming a complete CSI escape
// sequence when the first byte is ESC.  Unrecognized bytes decode as
// KeyUnknown without error so the caller can ignore them.
func DecodeKey(r *bufio.Reader) (Key, error) {
	b, err := r.ReadByte()
	if err != nil {
		return KeyUnknown, err
	}
	switch b {
	case ' ':
		return KeyNextStatement, nil
	case '\r', '\n':
		return KeyFinish, nil
	case 'c':
		return KeyContinue, nil
	case 'q', 0x03, 0x04:
		return KeyAbort, nil
	case 'b':
		return KeySetBreak, nil
	case 'r':
		return KeyRemoveBreak, nil
	case 'd':
		return KeyDisableBreak, nil
	case 'e':
		return KeyEnableBreak, nil
	case '?':
		return KeyHelp, nil
	case 0x1b:
		return decodeEscape(r)
	}
	return KeyUnknown, nil
}

// decodeEscape consumes the remainder of an ESC [ sequence.
func decodeEscape(r *bufio.Reader) (Key, error) {
	next, err := r.ReadByte()
	if err != nil {
		return KeyUnknown, err
	}
	if next != '[' {
		return KeyUnknown, nil
	}
	final, err := r.ReadByte()
	if err != nil {
		return KeyUnknown, err
	}
	switch final {
	case 'A':
		return KeyViewCaller, nil
	case 'B':
		return KeyViewCallee, nil
	case 'C':
		return KeyStepIn, nil
	case 'D':
		return KeyFinish, nil
	}
	return KeyUnknown, nil
}
