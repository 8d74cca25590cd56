// Copyright © 2024 The rebug authors

package profiler_test

import (
	"context"
	"testing"

	"github.com/luthersystems/rebug/script"
	"github.com/luthersystems/rebug/script/x/profiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testScript = `
(defun add (x y) (+ x y))
(defun twice (f v) (f (f v)))
(twice (lambda (n) (add n 1)) 0)`

func TestNewOpenTelemetryAnnotator(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
		trace.WithSampler(trace.AlwaysSample()),
	)
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()), "TracerProvider shutdown")
	})
	otel.SetTracerProvider(tp)

	env := script.NewEnv(nil)
	ppa := profiler.NewOpenTelemetryAnnotator(env.Runtime, context.Background())
	require.NoError(t, ppa.Enable())

	ret := env.LoadString("test.rebug", testScript)
	require.NotEqual(t, script.KError, ret.Kind, ret.String())
	assert.True(t, script.Equal(script.Int(2), ret))
	assert.NoError(t, ppa.Complete())

	spans := exporter.GetSpans()
	assert.GreaterOrEqual(t, len(spans), 5, "twice, two lambda calls, two adds")

	names := map[string]bool{}
	for _, s := range spans {
		names[s.Name] = true
	}
	assert.True(t, names["add"])
	assert.True(t, names["twice"])
}

func TestNewOpenTelemetryAnnotatorSkip(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
		trace.WithSampler(trace.AlwaysSample()),
	)
	t.Cleanup(func() {
		assert.NoError(t, tp.Shutdown(context.Background()), "TracerProvider shutdown")
	})
	otel.SetTracerProvider(tp)

	env := script.NewEnv(nil)
	ppa := profiler.NewOpenTelemetryAnnotator(env.Runtime, context.Background(),
		profiler.WithSkipFilter(profiler.SkipBuiltins))
	require.NoError(t, ppa.Enable())

	ret := env.LoadString("test.rebug", testScript)
	require.NotEqual(t, script.KError, ret.Kind, ret.String())
	assert.NoError(t, ppa.Complete())

	for _, s := range exporter.GetSpans() {
		assert.NotEqual(t, "+", s.Name, "builtin spans are filtered")
	}
}

func TestNewOpenCensusAnnotator(t *testing.T) {
	env := script.NewEnv(nil)
	ppa := profiler.NewOpenCensusAnnotator(env.Runtime, context.Background())
	require.NoError(t, ppa.Enable())

	ret := env.LoadString("test.rebug", testScript)
	require.NotEqual(t, script.KError, ret.Kind, ret.String())
	assert.True(t, script.Equal(script.Int(2), ret))
	assert.NoError(t, ppa.Complete())
}

func TestEnableTwice(t *testing.T) {
	env := script.NewEnv(nil)
	ppa := profiler.NewOpenTelemetryAnnotator(env.Runtime, context.Background())
	require.NoError(t, ppa.Enable())
	assert.Error(t, ppa.Enable())
}
