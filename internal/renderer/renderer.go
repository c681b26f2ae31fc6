package renderer

import (
	"embed"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

//go:embed views
var views embed.FS

var funcs = template.FuncMap{
	"ago":         humanize.Time,
	"queryEscape": url.QueryEscape,
}

// TemplateRenderer implements echo.Renderer
type TemplateRenderer struct {
	Templates map[string]*template.Template
}

// New creates a new TemplateRenderer with pre-parsed templates
func New() *TemplateRenderer {
	r := &TemplateRenderer{
		Templates: make(map[string]*template.Template),
	}
	r.parseTemplates()
	return r
}

func (t *TemplateRenderer) parseTemplates() {
	parse := func(name string, files ...string) {
		t.Templates[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(views, files...))
	}

	parse("files",
		"views/layouts/base.html",
		"views/pages/files.html",
		"views/partials/file_grid.html",
		"views/partials/notice.html",
	)
	// Partials
	parse("file_grid", "views/partials/file_grid.html", "views/partials/notice.html")
	parse("notice", "views/partials/notice.html")
	parse("usage_widget", "views/partials/usage_widget.html")
}

// selfExecutingTemplates lists templates that execute their own named block instead of "base"
var selfExecutingTemplates = map[string]bool{
	"file_grid":    true,
	"notice":       true,
	"usage_widget": true,
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := t.Templates[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Template not found: "+name)
	}

	if selfExecutingTemplates[name] {
		return tmpl.ExecuteTemplate(w, name, data)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}
