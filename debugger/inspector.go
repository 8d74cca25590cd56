// Copyright © 2024 The rebug authors

package debugger

import (
	"fmt"
	"sort"

	"github.com/luthersystems/rebug/script"
)

// ScopeBinding is one visible variable in a frame's scope chain.
type ScopeBinding struct {
	Name  string
	Value *script.Value
}

// InspectLocals lists the bindings visible in a frame's scope, innermost
// shadowing outermost, stopping before the root scope so builtins are
// not reported as locals.  Bindings are sorted by name.
func InspectLocals(frame *Frame) []ScopeBinding {
	if frame == nil || frame.Env == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []ScopeBinding
	for env := frame.Env; env != nil && env.Parent != nil; env = env.Parent {
		for name, v := range env.Scope {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, ScopeBinding{Name: name, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FormatValue renders a value for display, truncating long output.
func FormatValue(v *script.Value) string {
	const max = 120
	s := v.String()
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// EvalInContext parses and evaluates an expression in a frame's scope.
// Used by watch-style evaluation while suspended.
func EvalInContext(frame *Frame, src string) (*script.Value, error) {
	if frame == nil || frame.Env == nil {
		return nil, fmt.Errorf("no frame context")
	}
	expr, err := frame.Env.Runtime.Reader.ReadOne("<eval>", src)
	if err != nil {
		return nil, parseStepError(err)
	}
	// The evaluation goroutine is suspended while this runs; detach the
	// debugger so the watch expression's own calls are not observed as
	// debuggee frames.
	rt := frame.Env.Runtime
	prev := rt.Debugger
	rt.Debugger = nil
	ret := frame.Env.Eval(expr)
	rt.Debugger = prev
	if ret.Kind == script.KError {
		return nil, &EvalError{Text: src, Inner: ret}
	}
	return ret, nil
}
