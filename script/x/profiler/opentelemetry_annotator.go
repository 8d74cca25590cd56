// Copyright © 2024 The rebug authors

package profiler

import (
	"context"
	"errors"

	"github.com/luthersystems/rebug/script"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ContextOpenTelemetryTracerKey looks up a parent tracer name from a
// context key.
const ContextOpenTelemetryTracerKey = "otelParentTracer"

var _ script.Profiler = &otelAnnotator{}

type otelAnnotator struct {
	profiler
	currentContext context.Context
	currentSpan    trace.Span
}

// NewOpenTelemetryAnnotator returns an annotator that opens an
// OpenTelemetry span per function application, nested under
// parentContext.
func NewOpenTelemetryAnnotator(runtime *script.Runtime, parentContext context.Context, opts ...Option) *otelAnnotator {
	p := &otelAnnotator{
		profiler:       profiler{runtime: runtime},
		currentContext: parentContext,
	}
	p.profiler.applyConfigs(opts...)
	return p
}

// Enable attaches the annotator to the runtime.
func (p *otelAnnotator) Enable() error {
	p.runtime.Profiler = p
	if p.currentContext == nil {
		return errors.New("we can only append spans to a context that is linked to opentelemetry")
	}
	return p.profiler.Enable()
}

// Complete ends any span still open.
func (p *otelAnnotator) Complete() error {
	if p.currentSpan != nil {
		p.currentSpan.End()
	}
	return nil
}

func contextTracer(ctx context.Context) trace.Tracer {
	tracerName, ok := ctx.Value(ContextOpenTelemetryTracerKey).(string)
	if !ok {
		tracerName = "rebug"
	}
	return otel.GetTracerProvider().Tracer(tracerName)
}

func (p *otelAnnotator) Start(fun *script.Value) func() {
	if p.skipTrace(fun) {
		return func() {}
	}
	oldContext := p.currentContext
	name := funName(fun)
	p.currentContext, p.currentSpan = contextTracer(p.currentContext).Start(p.currentContext, name)
	p.addCodeAttributes(fun, name)
	return func() {
		p.currentSpan.End()
		// Pop the context back so sibling calls nest correctly.
		p.currentContext = oldContext
		p.currentSpan = trace.SpanFromContext(p.currentContext)
	}
}

func (p *otelAnnotator) addCodeAttributes(fun *script.Value, name string) {
	attrs := []attribute.KeyValue{
		semconv.CodeFunction(name),
	}
	if loc := fun.Fun.Source; loc != nil {
		attrs = append(attrs,
			semconv.CodeColumn(loc.Col),
			semconv.CodeFilepath(loc.File),
			semconv.CodeLineNumber(loc.Line),
		)
	}
	p.currentSpan.SetAttributes(attrs...)
}
