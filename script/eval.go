// Copyright © 2024 The rebug authors

package script

import "strings"

// specialForms are the operator symbols handled by the evaluator itself
// rather than by function application.
var specialForms = map[string]bool{
	"quote": true, "if": true, "let": true, "lambda": true,
	"defun": true, "progn": true, "set!": true, "while": true,
	"and": true, "or": true,
}

// IsSpecialForm reports whether name is an evaluator special form rather
// than a callable.
func IsSpecialForm(name string) bool { return specialForms[name] }

// Eval evaluates a single expression and returns its value.  Errors are
// returned as KError values, never as Go errors.
func (env *Env) Eval(expr *Value) *Value {
	switch expr.Kind {
	case KInt, KFloat, KString, KFun, KError:
		return expr
	case KSymbol:
		if expr.IsKeyword() || expr.Str == TrueSymbol || expr.Str == FalseSymbol {
			return expr
		}
		v, ok := env.Get(expr.Str)
		if !ok {
			return env.ConditionErrorf("unbound-symbol", "unbound symbol: %s", expr.Str)
		}
		return v
	case KSExpr:
		return env.evalSExpr(expr)
	default:
		return env.Errorf("cannot evaluate %s value", expr.Kind)
	}
}

// EvalBody evaluates forms as a statement sequence, firing the
// debugger's statement hook before each located form the way function
// bodies do.  Debug front ends use this to make top-level program text
// steppable.
func (env *Env) EvalBody(forms []*Value) *Value {
	return env.evalBody(forms)
}

// EvalProgram evaluates top-level forms in order and returns the value of
// the last one, stopping at the first error value.
func (env *Env) EvalProgram(forms []*Value) *Value {
	ret := Nil()
	for _, form := range forms {
		ret = env.Eval(form)
		if ret.Kind == KError {
			return ret
		}
	}
	return ret
}

func (env *Env) evalSExpr(expr *Value) *Value {
	if len(expr.Cells) == 0 {
		return expr // nil evaluates to itself
	}
	head := expr.Cells[0]
	if head.Kind == KSymbol {
		switch head.Str {
		case "quote":
			if len(expr.Cells) != 2 {
				return env.Errorf("quote expects one argument")
			}
			return expr.Cells[1]
		case "if":
			return env.evalIf(expr)
		case "let":
			return env.evalLet(expr)
		case "lambda":
			return env.evalLambda(expr, "")
		case "defun":
			return env.evalDefun(expr)
		case "progn":
			return env.evalBody(expr.Cells[1:])
		case "set!":
			return env.evalSet(expr)
		case "while":
			return env.evalWhile(expr)
		case "and":
			return env.evalAnd(expr)
		case "or":
			return env.evalOr(expr)
		}
	}
	fun := env.Eval(head)
	if fun.Kind == KError {
		return fun
	}
	if fun.Kind != KFun {
		return env.ConditionErrorf("not-callable", "cannot call %s value: %s", fun.Kind, fun)
	}
	args := make([]*Value, len(expr.Cells)-1)
	for i, cell := range expr.Cells[1:] {
		arg := env.Eval(cell)
		if arg.Kind == KError {
			return arg
		}
		args[i] = arg
	}
	return env.apply(expr, fun, args)
}

// evalBody evaluates body-position forms in order, firing the debugger's
// statement hook before each located form.  The special forms let, progn,
// and while route their bodies through here so every statement the source
// contains is observable.
func (env *Env) evalBody(forms []*Value) *Value {
	ret := Nil()
	for _, form := range forms {
		if err := env.debugStatement(form); err != nil {
			return err
		}
		ret = env.Eval(form)
		if ret.Kind == KError {
			return ret
		}
	}
	return ret
}

func (env *Env) debugStatement(expr *Value) *Value {
	dbg := env.Runtime.Debugger
	if dbg == nil || !dbg.IsEnabled() || expr.Source == nil {
		return nil
	}
	if !dbg.Statement(env, expr) {
		return nil
	}
	if dbg.WaitIfPaused(env, expr) == DebugAbort {
		return env.ConditionErrorf(AbortCondition, "evaluation aborted")
	}
	return nil
}

func (env *Env) evalIf(expr *Value) *Value {
	if len(expr.Cells) < 3 || len(expr.Cells) > 4 {
		return env.Errorf("if expects a condition and one or two branches")
	}
	cond := env.Eval(expr.Cells[1])
	if cond.Kind == KError {
		return cond
	}
	if cond.Truthy() {
		return env.Eval(expr.Cells[2])
	}
	if len(expr.Cells) == 4 {
		return env.Eval(expr.Cells[3])
	}
	return Nil()
}

func (env *Env) evalLet(expr *Value) *Value {
	if len(expr.Cells) < 2 || expr.Cells[1].Kind != KSExpr {
		return env.Errorf("let expects a binding list")
	}
	scope := env.Child()
	for _, bind := range expr.Cells[1].Cells {
		if bind.Kind != KSExpr || len(bind.Cells) != 2 || bind.Cells[0].Kind != KSymbol {
			return env.Errorf("let binding must be a (symbol expr) pair")
		}
		v := scope.Eval(bind.Cells[1])
		if v.Kind == KError {
			return v
		}
		scope.Put(bind.Cells[0].Str, v)
	}
	return scope.evalBody(expr.Cells[2:])
}

func (env *Env) evalSet(expr *Value) *Value {
	if len(expr.Cells) != 3 || expr.Cells[1].Kind != KSymbol {
		return env.Errorf("set! expects a symbol and an expression")
	}
	v := env.Eval(expr.Cells[2])
	if v.Kind == KError {
		return v
	}
	if !env.Update(expr.Cells[1].Str, v) {
		return env.ConditionErrorf("unbound-symbol", "set! of unbound symbol: %s", expr.Cells[1].Str)
	}
	return v
}

func (env *Env) evalWhile(expr *Value) *Value {
	if len(expr.Cells) < 2 {
		return env.Errorf("while expects a condition")
	}
	for {
		cond := env.Eval(expr.Cells[1])
		if cond.Kind == KError {
			return cond
		}
		if !cond.Truthy() {
			return Nil()
		}
		ret := env.evalBody(expr.Cells[2:])
		if ret.Kind == KError {
			return ret
		}
	}
}

func (env *Env) evalAnd(expr *Value) *Value {
	ret := Bool(true)
	for _, cell := range expr.Cells[1:] {
		ret = env.Eval(cell)
		if ret.Kind == KError || !ret.Truthy() {
			return ret
		}
	}
	return ret
}

func (env *Env) evalOr(expr *Value) *Value {
	for _, cell := range expr.Cells[1:] {
		ret := env.Eval(cell)
		if ret.Kind == KError || ret.Truthy() {
			return ret
		}
	}
	return Bool(false)
}

func (env *Env) evalDefun(expr *Value) *Value {
	if len(expr.Cells) < 3 || expr.Cells[1].Kind != KSymbol {
		return env.Errorf("defun expects a name and a parameter list")
	}
	name := expr.Cells[1].Str
	fun := env.makeFun(expr, name, expr.Cells[2], expr.Cells[3:])
	if fun.Kind == KError {
		return fun
	}
	env.Put(name, fun)
	return Symbol(name)
}

func (env *Env) evalLambda(expr *Value, name string) *Value {
	if len(expr.Cells) < 2 {
		return env.Errorf("lambda expects a parameter list")
	}
	return env.makeFun(expr, name, expr.Cells[1], expr.Cells[2:])
}

func (env *Env) makeFun(expr *Value, name string, params *Value, body []*Value) *Value {
	formals, errv := env.parseFormals(params)
	if errv != nil {
		return errv
	}
	fun := &FunData{
		FID:     env.Runtime.genFID(name),
		Name:    name,
		Formals: formals,
		Body:    body,
		Env:     env,
		Source:  expr.Source,
	}
	if len(body) > 0 && body[0].Source != nil && body[len(body)-1].End > 0 {
		fun.BodyPos = body[0].Source.Pos
		fun.BodyEnd = body[len(body)-1].End
	}
	v := &Value{Kind: KFun, Fun: fun, Source: expr.Source, End: expr.End}
	return v
}

func (env *Env) parseFormals(params *Value) (*Formals, *Value) {
	if params.Kind != KSExpr {
		return nil, env.Errorf("parameter list must be a list")
	}
	formals := &Formals{}
	mode := ""
	cells := params.Cells
	for i := 0; i < len(cells); i++ {
		p := cells[i]
		if p.Kind == KSymbol && strings.HasPrefix(p.Str, "&") {
			switch p.Str {
			case "&optional", "&key":
				mode = p.Str
				continue
			case "&rest":
				if i+1 != len(cells)-1 || cells[i+1].Kind != KSymbol {
					return nil, env.Errorf("&rest expects a single trailing symbol")
				}
				formals.Rest = cells[i+1].Str
				return formals, nil
			default:
				return nil, env.Errorf("unknown parameter marker %s", p.Str)
			}
		}
		switch mode {
		case "":
			if p.Kind != KSymbol {
				return nil, env.Errorf("required parameter must be a symbol")
			}
			formals.Required = append(formals.Required, p.Str)
		case "&optional", "&key":
			opt, errv := env.parseOptParam(p)
			if errv != nil {
				return nil, errv
			}
			if mode == "&optional" {
				formals.Optional = append(formals.Optional, opt)
			} else {
				formals.Key = append(formals.Key, opt)
			}
		}
	}
	return formals, nil
}

func (env *Env) parseOptParam(p *Value) (OptParam, *Value) {
	if p.Kind == KSymbol {
		return OptParam{Name: p.Str}, nil
	}
	if p.Kind == KSExpr && len(p.Cells) == 2 && p.Cells[0].Kind == KSymbol {
		return OptParam{Name: p.Cells[0].Str, Default: p.Cells[1]}, nil
	}
	return OptParam{}, env.Errorf("optional parameter must be a symbol or (symbol default)")
}

// apply invokes a function value with already evaluated arguments.  The
// call expression is retained for stack frames and debugger hooks.
func (env *Env) apply(call *Value, fun *Value, args []*Value) (ret *Value) {
	data := fun.Fun
	frame := CallFrame{FID: data.FID, Name: funName(data), Source: call.Source}
	if err := env.Runtime.Stack.Push(frame); err != nil {
		return env.ConditionErrorf("stack-overflow", "%v", err)
	}
	defer env.Runtime.Stack.Pop()
	if prof := env.Runtime.Profiler; prof != nil && prof.IsEnabled() {
		done := prof.Start(fun)
		defer done()
	}
	if data.Builtin != nil {
		if dbg := env.Runtime.Debugger; dbg != nil && dbg.IsEnabled() {
			if err := dbg.EnterFun(env, call, fun); err != nil {
				return env.ConditionErrorf(TrapCondition, "%v", err)
			}
			defer func() { dbg.LeaveFun(env, fun, ret) }()
		}
		return data.Builtin(env, args)
	}
	fenv := data.Env.Child()
	if errv := fenv.bindFormals(data.Formals, args); errv != nil {
		return errv
	}
	if dbg := env.Runtime.Debugger; dbg != nil && dbg.IsEnabled() {
		if err := dbg.EnterFun(fenv, call, fun); err != nil {
			return env.ConditionErrorf(TrapCondition, "%v", err)
		}
		defer func() { dbg.LeaveFun(fenv, fun, ret) }()
	}
	return fenv.evalBody(data.Body)
}

func funName(data *FunData) string {
	if data.Name != "" {
		return data.Name
	}
	return data.FID
}

// bindFormals binds evaluated arguments into fenv following the formal
// parameter list.  Optional and key defaults are evaluated in fenv, in
// declaration order, so later defaults may reference earlier parameters.
func (fenv *Env) bindFormals(formals *Formals, args []*Value) *Value {
	i := 0
	for _, name := range formals.Required {
		if i >= len(args) {
			return fenv.ConditionErrorf("arity-error", "missing required argument: %s", name)
		}
		fenv.Put(name, args[i])
		i++
	}
	for _, opt := range formals.Optional {
		if i < len(args) && !args[i].IsKeyword() {
			fenv.Put(opt.Name, args[i])
			i++
			continue
		}
		fenv.Put(opt.Name, fenv.evalDefault(opt))
	}
	// Keyword arguments are :name value pairs in any order.
	keyvals := map[string]*Value{}
	for len(formals.Key) > 0 && i < len(args) && args[i].IsKeyword() {
		if i+1 >= len(args) {
			return fenv.ConditionErrorf("arity-error", "keyword %s missing a value", args[i].Str)
		}
		keyvals[strings.TrimPrefix(args[i].Str, ":")] = args[i+1]
		i += 2
	}
	for _, key := range formals.Key {
		if v, ok := keyvals[key.Name]; ok {
			fenv.Put(key.Name, v)
			delete(keyvals, key.Name)
			continue
		}
		fenv.Put(key.Name, fenv.evalDefault(key))
	}
	for name := range keyvals {
		return fenv.ConditionErrorf("arity-error", "unexpected keyword argument: :%s", name)
	}
	if formals.Rest != "" {
		fenv.Put(formals.Rest, SExpr(args[i:]))
		return nil
	}
	if i < len(args) {
		return fenv.ConditionErrorf("arity-error", "too many arguments: expected %d", i)
	}
	return nil
}

func (fenv *Env) evalDefault(p OptParam) *Value {
	if p.Default == nil {
		return Nil()
	}
	return fenv.Eval(p.Default)
}
