// Copyright © 2024 The rebug authors

package script

import (
	"fmt"
	"strings"
)

type builtinDef struct {
	name string
	fn   func(env *Env, args []*Value) *Value
}

var builtinDefs = []builtinDef{
	{"+", builtinAdd},
	{"-", builtinSub},
	{"*", builtinMul},
	{"/", builtinDiv},
	{"=", builtinNumEq},
	{"<", builtinCompare(func(a, b float64) bool { return a < b })},
	{">", builtinCompare(func(a, b float64) bool { return a > b })},
	{"<=", builtinCompare(func(a, b float64) bool { return a <= b })},
	{">=", builtinCompare(func(a, b float64) bool { return a >= b })},
	{"not", builtinNot},
	{"equal?", builtinEqual},
	{"list", builtinList},
	{"cons", builtinCons},
	{"first", builtinFirst},
	{"rest", builtinRest},
	{"nth", builtinNth},
	{"length", builtinLength},
	{"concat", builtinConcat},
	{"to-string", builtinToString},
	{"type-of", builtinTypeOf},
	{"print", builtinPrint},
	{"error", builtinError},
}

// registerBuiltins installs the builtin functions into a root scope.
func registerBuiltins(env *Env) {
	for _, def := range builtinDefs {
		fid := env.Runtime.genFID(def.name)
		env.Put(def.name, &Value{Kind: KFun, Fun: &FunData{
			FID:     fid,
			Name:    def.name,
			Builtin: def.fn,
		}})
	}
}

func numArg(env *Env, name string, v *Value) (float64, bool, *Value) {
	switch v.Kind {
	case KInt:
		return float64(v.Int), false, nil
	case KFloat:
		return v.Float, true, nil
	default:
		return 0, false, env.ConditionErrorf("type-error", "%s expects numbers, got %s", name, v.Kind)
	}
}

func numFold(env *Env, name string, args []*Value, zero float64, fold func(acc, x float64) float64) *Value {
	acc := zero
	isFloat := false
	for i, arg := range args {
		x, f, errv := numArg(env, name, arg)
		if errv != nil {
			return errv
		}
		isFloat = isFloat || f
		if i == 0 && name == "-" && len(args) > 1 {
			acc = x
			continue
		}
		acc = fold(acc, x)
	}
	if isFloat {
		return Float(acc)
	}
	return Int(int(acc))
}

func builtinAdd(env *Env, args []*Value) *Value {
	return numFold(env, "+", args, 0, func(a, x float64) float64 { return a + x })
}

func builtinMul(env *Env, args []*Value) *Value {
	return numFold(env, "*", args, 1, func(a, x float64) float64 { return a * x })
}

func builtinSub(env *Env, args []*Value) *Value {
	if len(args) == 0 {
		return env.ConditionErrorf("arity-error", "- expects at least one argument")
	}
	return numFold(env, "-", args, 0, func(a, x float64) float64 { return a - x })
}

// builtinDiv always produces a float so integer division never silently
// truncates.
func builtinDiv(env *Env, args []*Value) *Value {
	if len(args) == 0 {
		return env.ConditionErrorf("arity-error", "/ expects at least one argument")
	}
	acc, _, errv := numArg(env, "/", args[0])
	if errv != nil {
		return errv
	}
	divisors := args[1:]
	if len(args) == 1 {
		divisors = args
		acc = 1
	}
	for _, arg := range divisors {
		x, _, errv := numArg(env, "/", arg)
		if errv != nil {
			return errv
		}
		if x == 0 {
			return env.ConditionErrorf("divide-by-zero", "division by zero")
		}
		acc /= x
	}
	return Float(acc)
}

func builtinNumEq(env *Env, args []*Value) *Value {
	if len(args) < 2 {
		return env.ConditionErrorf("arity-error", "= expects at least two arguments")
	}
	first, _, errv := numArg(env, "=", args[0])
	if errv != nil {
		return errv
	}
	for _, arg := range args[1:] {
		x, _, errv := numArg(env, "=", arg)
		if errv != nil {
			return errv
		}
		if x != first {
			return Bool(false)
		}
	}
	return Bool(true)
}

func builtinCompare(cmp func(a, b float64) bool) func(env *Env, args []*Value) *Value {
	return func(env *Env, args []*Value) *Value {
		if len(args) != 2 {
			return env.ConditionErrorf("arity-error", "comparison expects two arguments")
		}
		a, _, errv := numArg(env, "compare", args[0])
		if errv != nil {
			return errv
		}
		b, _, errv := numArg(env, "compare", args[1])
		if errv != nil {
			return errv
		}
		return Bool(cmp(a, b))
	}
}

func builtinNot(env *Env, args []*Value) *Value {
	if len(args) != 1 {
		return env.ConditionErrorf("arity-error", "not expects one argument")
	}
	return Bool(!args[0].Truthy())
}

func builtinEqual(env *Env, args []*Value) *Value {
	if len(args) != 2 {
		return env.ConditionErrorf("arity-error", "equal? expects two arguments")
	}
	return Bool(Equal(args[0], args[1]))
}

func builtinList(env *Env, args []*Value) *Value {
	return SExpr(args)
}

func builtinCons(env *Env, args []*Value) *Value {
	if len(args) != 2 || args[1].Kind != KSExpr {
		return env.ConditionErrorf("type-error", "cons expects a value and a list")
	}
	cells := make([]*Value, 0, len(args[1].Cells)+1)
	cells = append(cells, args[0])
	cells = append(cells, args[1].Cells...)
	return SExpr(cells)
}

func builtinFirst(env *Env, args []*Value) *Value {
	if len(args) != 1 || args[0].Kind != KSExpr {
		return env.ConditionErrorf("type-error", "first expects a list")
	}
	if len(args[0].Cells) == 0 {
		return Nil()
	}
	return args[0].Cells[0]
}

func builtinRest(env *Env, args []*Value) *Value {
	if len(args) != 1 || args[0].Kind != KSExpr {
		return env.ConditionErrorf("type-error", "rest expects a list")
	}
	if len(args[0].Cells) == 0 {
		return Nil()
	}
	return SExpr(args[0].Cells[1:])
}

func builtinNth(env *Env, args []*Value) *Value {
	if len(args) != 2 || args[0].Kind != KSExpr || args[1].Kind != KInt {
		return env.ConditionErrorf("type-error", "nth expects a list and an index")
	}
	n := args[1].Int
	if n < 0 || n >= len(args[0].Cells) {
		return env.ConditionErrorf("index-error", "index %d out of range", n)
	}
	return args[0].Cells[n]
}

func builtinLength(env *Env, args []*Value) *Value {
	if len(args) != 1 {
		return env.ConditionErrorf("arity-error", "length expects one argument")
	}
	switch args[0].Kind {
	case KSExpr:
		return Int(len(args[0].Cells))
	case KString:
		return Int(len(args[0].Str))
	default:
		return env.ConditionErrorf("type-error", "length expects a list or string")
	}
}

func builtinConcat(env *Env, args []*Value) *Value {
	var sb strings.Builder
	for _, arg := range args {
		if arg.Kind == KString {
			sb.WriteString(arg.Str)
			continue
		}
		sb.WriteString(arg.String())
	}
	return String(sb.String())
}

func builtinToString(env *Env, args []*Value) *Value {
	if len(args) != 1 {
		return env.ConditionErrorf("arity-error", "to-string expects one argument")
	}
	if args[0].Kind == KString {
		return args[0]
	}
	return String(args[0].String())
}

func builtinTypeOf(env *Env, args []*Value) *Value {
	if len(args) != 1 {
		return env.ConditionErrorf("arity-error", "type-of expects one argument")
	}
	return Symbol(args[0].Kind.String())
}

func builtinPrint(env *Env, args []*Value) *Value {
	parts := make([]string, len(args))
	for i, arg := range args {
		if arg.Kind == KString {
			parts[i] = arg.Str
		} else {
			parts[i] = arg.String()
		}
	}
	fmt.Fprintln(env.Runtime.Stderr, strings.Join(parts, " "))
	return Nil()
}

func builtinError(env *Env, args []*Value) *Value {
	switch len(args) {
	case 1:
		return env.Errorf("%s", messageText(args[0]))
	case 2:
		if args[0].Kind != KSymbol {
			return env.ConditionErrorf("type-error", "error condition must be a symbol")
		}
		return env.ConditionErrorf(strings.TrimPrefix(args[0].Str, ":"), "%s", messageText(args[1]))
	default:
		return env.ConditionErrorf("arity-error", "error expects a message and optional condition")
	}
}

func messageText(v *Value) string {
	if v.Kind == KString {
		return v.Str
	}
	return v.String()
}
