// Copyright © 2024 The rebug authors

package repl

import (
	"io"

	"github.com/luthersystems/rebug/diagnostic"
	"github.com/luthersystems/rebug/script"
)

// renderError renders an error value as an annotated diagnostic.  The
// renderer reads source text through the runtime's library so snippets
// work for REPL input and captured sessions, not just files on disk.
func renderError(w io.Writer, env *script.Env, v *script.Value) {
	d := errorToDiag(v)
	r := &diagnostic.Renderer{
		Color: diagnostic.ColorAuto,
		SourceReader: func(name string) ([]byte, error) {
			text, err := env.Runtime.Library.LoadSource(name)
			if err != nil {
				return nil, err
			}
			return []byte(text), nil
		},
	}
	_ = r.Render(w, d)
}

// errorToDiag converts an error value to a Diagnostic for display.
func errorToDiag(v *script.Value) diagnostic.Diagnostic {
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
