// Copyright © 2024 The rebug authors

package cmd

import (
	"os"

	"github.com/luthersystems/rebug/diagnostic"
	"github.com/luthersystems/rebug/script"
)

func colorMode() diagnostic.ColorMode {
	switch colorFlag {
	case "always":
		return diagnostic.ColorAlways
	case "never":
		return diagnostic.ColorNever
	default:
		return diagnostic.ColorAuto
	}
}

// newRenderer returns a diagnostic renderer that reads source through
// env's library, so snippets resolve for both files and stored text.
func newRenderer(env *script.Env) *diagnostic.Renderer {
	return &diagnostic.Renderer{
		Color: colorMode(),
		SourceReader: func(name string) ([]byte, error) {
			text, err := env.Runtime.Library.LoadSource(name)
			if err != nil {
				return nil, err
			}
			return []byte(text), nil
		},
	}
}

// errorToDiagnostic converts an error value to a Diagnostic for display.
func errorToDiagnostic(v *script.Value) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{
		Severity: diagnostic.SeverityError,
		Message:  v.Str,
	}
	if cond := v.Condition(); cond != "" && cond != "error" {
		d.Message = cond + ": " + d.Message
	}

	if v.Source != nil {
		d.Spans = append(d.Spans, diagnostic.Span{
			File: v.Source.File,
			Line: v.Source.Line,
			Col:  v.Source.Col,
		})
	}

	if v.Stack != nil {
		for i := len(v.Stack.Frames) - 1; i >= 0; i-- {
			frame := &v.Stack.Frames[i]
			if frame.Name == "" {
				continue
			}
			loc := "unknown"
			if frame.Source != nil {
				loc = frame.Source.String()
			}
			d.Notes = append(d.Notes, "in "+frame.Name+" at "+loc)
		}
	}

	return d
}

// renderScriptError renders an error value with diagnostic formatting to
// stderr.
func renderScriptError(env *script.Env, v *script.Value) {
	_ = newRenderer(env).Render(os.Stderr, errorToDiagnostic(v))
}
