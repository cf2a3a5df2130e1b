package dashboard

import (
	"fmt"
	"io"
	"text/template"

	"frugal/web"
)

// Renderer writes page models as plain text.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"noData":         func() string { return NoInsights },
		"noTransactions": func() string { return NoTransactions },
	}
	tmpl, err := template.New("dashboard").Funcs(funcs).ParseFS(web.TemplatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render writes the stats, insights and transactions sections.
func (r *Renderer) Render(w io.Writer, m Model) error {
	return r.templates.ExecuteTemplate(w, "page", m)
}

// RenderChat writes the chat transcript.
func (r *Renderer) RenderChat(w io.Writer, m Model) error {
	return r.templates.ExecuteTemplate(w, "chat", m)
}
