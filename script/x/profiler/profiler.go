// Copyright © 2024 The rebug authors

// Package profiler implements script.Profiler annotators that attach
// tracing spans to function application.  Annotators are attached to a
// Runtime with Enable and wrap every user function call in a span until
// Complete is called.
package profiler

import (
	"fmt"

	"github.com/luthersystems/rebug/script"
)

// profiler carries the state shared by all annotator kinds.
type profiler struct {
	runtime    *script.Runtime
	enabled    bool
	skipFilter SkipFilter
}

var _ script.Profiler = &profiler{}

func (p *profiler) IsEnabled() bool {
	return p.enabled
}

// Option configures an annotator.
type Option func(*profiler)

// WithSkipFilter suppresses spans for functions the filter matches.
func WithSkipFilter(filter SkipFilter) Option {
	return func(p *profiler) { p.skipFilter = filter }
}

func (p *profiler) applyConfigs(opts ...Option) {
	for _, opt := range opts {
		opt(p)
	}
}

func (p *profiler) Enable() error {
	if p.enabled {
		return fmt.Errorf("profiler already enabled")
	}
	p.enabled = true
	return nil
}

func (p *profiler) Start(fun *script.Value) func() {
	return func() {}
}

func (p *profiler) skipTrace(fun *script.Value) bool {
	if fun.Kind != script.KFun || fun.Fun == nil {
		return true
	}
	return p.skipFilter != nil && p.skipFilter(fun)
}

// funName returns the canonical label for a function value.
func funName(fun *script.Value) string {
	if fun.Kind != script.KFun || fun.Fun == nil {
		return ""
	}
	if fun.Fun.Name != "" {
		return fun.Fun.Name
	}
	return fun.Fun.FID
}

// SkipFilter reports functions that should not be annotated.
type SkipFilter func(fun *script.Value) bool

// SkipBuiltins filters out builtin functions, keeping spans to
// user-defined code only.
func SkipBuiltins(fun *script.Value) bool {
	return fun.Fun != nil && fun.Fun.Builtin != nil
}
