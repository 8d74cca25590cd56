// Copyright © 2024 The rebug authors

// Package script implements a small embedded s-expression language with
// source-located values, first-class functions, and condition-tagged
// errors.  The evaluator exposes hook interfaces (Debugger, Profiler)
// that let external packages observe and suspend evaluation without the
// language core depending on them.
package script

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the value types of the language.
type Kind uint

const (
	// KInvalid (0) is not a valid value kind.
	KInvalid Kind = iota
	// KInt values store an int in Value.Int.
	KInt
	// KFloat values store a float64 in Value.Float.
	KFloat
	// KString values store text in Value.Str.
	KString
	// KSymbol values store the symbol name in Value.Str.  Keywords are
	// symbols whose name starts with a colon and always evaluate to
	// themselves.
	KSymbol
	// KSExpr values store list elements in Value.Cells.  The empty list
	// is nil and is falsey.
	KSExpr
	// KFun values store function metadata in Value.Fun.
	KFun
	// KError values store a message in Value.Str, the condition symbol in
	// Cells[0], and a copy of the call stack taken at creation time in
	// Value.Stack.
	KError
)

func (k Kind) String() string {
	switch k {
	case KInt:
		return "int"
	case KFloat:
		return "float"
	case KString:
		return "string"
	case KSymbol:
		return "symbol"
	case KSExpr:
		return "list"
	case KFun:
		return "function"
	case KError:
		return "error"
	default:
		return "invalid"
	}
}

// Value is the universal datum of the language.  Programs should not
// modify Source as the reference may be shared by multiple values.
type Value struct {
	Kind   Kind
	Int    int
	Float  float64
	Str    string
	Cells  []*Value
	Fun    *FunData
	Stack  *CallStack // errors only
	Source *Location
	// End is the byte offset one past the expression in its source
	// stream, 0 when untracked.  Together with Source.Pos it delimits
	// the expression's verbatim text.
	End int
}

// FunData holds the callable part of a KFun value.
type FunData struct {
	FID     string
	Name    string // symbol bound at definition, "" for lambdas
	Formals *Formals
	Body    []*Value
	Builtin func(env *Env, args []*Value) *Value
	Env     *Env // closure environment, nil for builtins
	Source  *Location
	// BodyPos and BodyEnd delimit the byte span of the function's body
	// text within Source.File.  Both zero when the body text cannot be
	// recovered (builtins).
	BodyPos int
	BodyEnd int
}

// Formals describes a function's parameter list in declaration order.
type Formals struct {
	Required []string
	Optional []OptParam
	Key      []OptParam
	Rest     string
}

// OptParam is an &optional or &key parameter with a default expression.
// A nil Default binds the empty list.
type OptParam struct {
	Name    string
	Default *Value
}

// Names returns every parameter name in declaration order: required,
// optional, key, rest.  This is the order captured binding sets use.
func (f *Formals) Names() []string {
	names := make([]string, 0, len(f.Required)+len(f.Optional)+len(f.Key)+1)
	names = append(names, f.Required...)
	for _, p := range f.Optional {
		names = append(names, p.Name)
	}
	for _, p := range f.Key {
		names = append(names, p.Name)
	}
	if f.Rest != "" {
		names = append(names, f.Rest)
	}
	return names
}

const (
	// TrueSymbol and FalseSymbol are the boolean symbols.
	TrueSymbol  = "true"
	FalseSymbol = "false"
)

// Int returns an int value.
func Int(n int) *Value { return &Value{Kind: KInt, Int: n} }

// Float returns a float value.
func Float(f float64) *Value { return &Value{Kind: KFloat, Float: f} }

// String returns a string value.
func String(s string) *Value { return &Value{Kind: KString, Str: s} }

// Symbol returns a symbol value.
func Symbol(s string) *Value { return &Value{Kind: KSymbol, Str: s} }

// Bool returns the true or false symbol.
func Bool(b bool) *Value {
	if b {
		return Symbol(TrueSymbol)
	}
	return Symbol(FalseSymbol)
}

// SExpr returns a list value with the given cells.
func SExpr(cells []*Value) *Value { return &Value{Kind: KSExpr, Cells: cells} }

// Nil returns the empty list.
func Nil() *Value { return &Value{Kind: KSExpr} }

// NewBuiltin returns a function value backed by a Go implementation.
// Builtins registered this way have no recoverable source text.
func NewBuiltin(name string, fn func(env *Env, args []*Value) *Value) *Value {
	return &Value{Kind: KFun, Fun: &FunData{FID: name, Name: name, Builtin: fn}}
}

// IsNil returns true for the empty list.
func (v *Value) IsNil() bool { return v.Kind == KSExpr && len(v.Cells) == 0 }

// IsKeyword returns true for keyword symbols like :name.
func (v *Value) IsKeyword() bool {
	return v.Kind == KSymbol && strings.HasPrefix(v.Str, ":")
}

// Truthy reports the language's truthiness: nil, the false symbol, and
// errors are falsey; everything else is truthy.
func (v *Value) Truthy() bool {
	if v == nil || v.IsNil() || v.Kind == KError {
		return false
	}
	return !(v.Kind == KSymbol && v.Str == FalseSymbol)
}

// Condition returns an error value's condition symbol, or "".
func (v *Value) Condition() string {
	if v.Kind != KError || len(v.Cells) == 0 {
		return ""
	}
	return v.Cells[0].Str
}

// Equal compares two values structurally.  Functions compare by FID.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind == KInt && b.Kind == KFloat {
		return float64(a.Int) == b.Float
	}
	if a.Kind == KFloat && b.Kind == KInt {
		return a.Float == float64(b.Int)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KInt:
		return a.Int == b.Int
	case KFloat:
		return a.Float == b.Float
	case KString, KSymbol:
		return a.Str == b.Str
	case KFun:
		return a.Fun != nil && b.Fun != nil && a.Fun.FID == b.Fun.FID
	case KSExpr:
		if len(a.Cells) != len(b.Cells) {
			return false
		}
		for i := range a.Cells {
			if !Equal(a.Cells[i], b.Cells[i]) {
				return false
			}
		}
		return true
	case KError:
		return a.Str == b.Str && a.Condition() == b.Condition()
	default:
		return false
	}
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case KInt:
		return strconv.Itoa(v.Int)
	case KFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KString:
		return strconv.Quote(v.Str)
	case KSymbol:
		return v.Str
	case KSExpr:
		parts := make([]string, len(v.Cells))
		for i, c := range v.Cells {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	case KFun:
		name := ""
		if v.Fun != nil {
			name = v.Fun.Name
			if name == "" {
				name = v.Fun.FID
			}
			if v.Fun.Builtin != nil {
				return fmt.Sprintf("<builtin %s>", name)
			}
		}
		return fmt.Sprintf("<function %s>", name)
	case KError:
		cond := v.Condition()
		if cond == "" {
			cond = "error"
		}
		return fmt.Sprintf("<%s: %s>", cond, v.Str)
	default:
		return "<invalid>"
	}
}
