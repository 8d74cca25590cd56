// Copyright © 2024 The rebug authors

package debugger

import (
	"errors"
	"fmt"

	"github.com/luthersystems/rebug/script"
)

// ErrNotFound is returned by stores when no entry exists for a key.
var ErrNotFound = errors.New("not found")

// StashFailedError reports that a trapped evaluation completed without
// ever reaching the target call, so no bindings could be captured.  This
// typically means the call sits on an untaken branch.
type StashFailedError struct {
	Target string
}

func (e *StashFailedError) Error() string {
	return fmt.Sprintf("stashing failed: call %s was never reached", e.Target)
}

// ParseStepError reports that the cursor did not resolve to a call
// expression, or that the surrounding text could not be parsed.
type ParseStepError struct {
	Loc *script.Location
	Msg string
}

func (e *ParseStepError) Error() string {
	if e.Loc != nil {
		return fmt.Sprintf("%s: %s", e.Loc, e.Msg)
	}
	return e.Msg
}

// EvalError wraps a fault raised during a trapped evaluation, other than
// the trap itself, together with the text that produced it.
type EvalError struct {
	Text  string
	Inner *script.Value
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation error in %q: %s", snippet(e.Text), e.Inner)
}

// DefMissingError reports that a callable has no recoverable source
// text, naming the callable.
type DefMissingError struct {
	Name string
}

func (e *DefMissingError) Error() string {
	return fmt.Sprintf("no source text available for %s", e.Name)
}

func snippet(text string) string {
	const max = 40
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
