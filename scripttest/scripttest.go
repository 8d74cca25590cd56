// Copyright © 2024 The rebug authors

// Package scripttest runs scripted evaluation sequences against a fresh
// environment, routing interpreter output through the test log.
package scripttest

import (
	"fmt"
	"testing"

	"github.com/luthersystems/rebug/script"
)

// Runner builds test environments and evaluates test sequences.
type Runner struct {
	// Setup prepares each environment, for example loading fixture
	// definitions.  A returned error value fails the test.
	Setup func(env *script.Env) *script.Value
}

// NewEnv returns a fresh root environment whose stderr is routed to the
// test log.
func (r *Runner) NewEnv(t testing.TB) *script.Env {
	t.Helper()
	env := script.NewEnv(nil)
	logger := NewLogger(t)
	env.Runtime.Stderr = logger
	t.Cleanup(logger.Flush)
	if r.Setup != nil {
		if ret := r.Setup(env); ret != nil && ret.Kind == script.KError {
			t.Fatalf("environment setup failed: %s", ret)
		}
	}
	return env
}

// Step is one expression in a sequence together with its expectation.
// Want is the printed form of the expected value.  A non-empty Cond
// instead expects an error value tagged with that condition.
type Step struct {
	Expr string
	Want string
	Cond string
}

// Sequence is an ordered list of steps evaluated in a single
// environment, so earlier definitions are visible to later steps.
type Sequence []Step

// RunSequence evaluates a sequence as a subtest.
func (r *Runner) RunSequence(t *testing.T, name string, seq Sequence) {
	t.Run(name, func(t *testing.T) {
		env := r.NewEnv(t)
		for i, step := range seq {
			ret := env.LoadString(testName(name, i), step.Expr)
			if step.Cond != "" {
				if ret.Kind != script.KError {
					t.Errorf("step %d %q: want condition %s, got %s", i, step.Expr, step.Cond, ret)
				} else if cond := ret.Condition(); cond != step.Cond {
					t.Errorf("step %d %q: want condition %s, got %s", i, step.Expr, step.Cond, cond)
				}
				continue
			}
			if ret.Kind == script.KError {
				t.Errorf("step %d %q: unexpected error: %s", i, step.Expr, ret)
				continue
			}
			if got := ret.String(); got != step.Want {
				t.Errorf("step %d %q: want %s, got %s", i, step.Expr, step.Want, got)
			}
		}
	})
}

// testName gives each step its own library entry so source text stays
// recoverable per step.
func testName(name string, i int) string {
	return fmt.Sprintf("%s-%d.rebug", name, i)
}
