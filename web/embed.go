package web

import "embed"

// TemplatesFS embeds the text templates used to render the dashboard.
//
//go:embed templates/*.tmpl
var TemplatesFS embed.FS
