// Copyright © 2024 The rebug authors

package script

import "fmt"

// Errorf returns an error value with the generic "error" condition.  The
// current call stack is copied into the value.
func (env *Env) Errorf(format string, v ...interface{}) *Value {
	return env.ConditionErrorf("error", format, v...)
}

// ConditionErrorf returns an error value tagged with a condition symbol.
func (env *Env) ConditionErrorf(condition string, format string, v ...interface{}) *Value {
	val := &Value{
		Kind:  KError,
		Str:   fmt.Sprintf(format, v...),
		Cells: []*Value{Symbol(condition)},
	}
	if env != nil && env.Runtime != nil {
		val.Stack = env.Runtime.Stack.Copy()
	}
	return val
}

// GoError converts an error value into a Go error, or returns nil for
// non-error values.
func GoError(v *Value) error {
	if v == nil || v.Kind != KError {
		return nil
	}
	return &conditionError{cond: v.Condition(), msg: v.Str, val: v}
}

type conditionError struct {
	cond string
	msg  string
	val  *Value
}

func (e *conditionError) Error() string {
	if e.cond == "" {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.cond, e.msg)
}

// ErrorVal recovers the language value carried by an error produced with
// GoError, or nil.
func ErrorVal(err error) *Value {
	if ce, ok := err.(*conditionError); ok {
		return ce.val
	}
	return nil
}
