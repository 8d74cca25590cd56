// Copyright © 2024 The rebug authors

// Package docs embeds the language and debugging guides for use by the
// CLI.
package docs

import _ "embed"

//go:embed lang.md
var LangGuide string

//go:embed debugging-guide.md
var DebuggingGuide string
