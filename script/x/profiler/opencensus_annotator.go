// Copyright © 2024 The rebug authors

package profiler

import (
	"context"
	"errors"

	"github.com/luthersystems/rebug/script"
	"go.opencensus.io/trace"
)

var _ script.Profiler = &ocAnnotator{}

type ocAnnotator struct {
	profiler
	currentContext context.Context
	currentSpan    *trace.Span
}

// NewOpenCensusAnnotator returns an annotator that opens an OpenCensus
// span per function application, nested under parentContext.
func NewOpenCensusAnnotator(runtime *script.Runtime, parentContext context.Context, opts ...Option) *ocAnnotator {
	p := &ocAnnotator{
		profiler:       profiler{runtime: runtime},
		currentContext: parentContext,
	}
	p.profiler.applyConfigs(opts...)
	return p
}

// Enable attaches the annotator to the runtime.
func (p *ocAnnotator) Enable() error {
	p.runtime.Profiler = p
	if p.currentContext == nil {
		return errors.New("we can only append spans to a context that is linked to opencensus")
	}
	return p.profiler.Enable()
}

// Complete ends any span still open.
func (p *ocAnnotator) Complete() error {
	if p.currentSpan != nil {
		p.currentSpan.End()
	}
	return nil
}

func (p *ocAnnotator) Start(fun *script.Value) func() {
	if p.skipTrace(fun) {
		return func() {}
	}
	oldContext := p.currentContext
	p.currentContext, p.currentSpan = trace.StartSpan(p.currentContext, funName(fun))
	span := p.currentSpan
	return func() {
		span.End()
		p.currentContext = oldContext
		p.currentSpan = trace.FromContext(p.currentContext)
	}
}
