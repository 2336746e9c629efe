// Package numbering renders human-readable invoice full numbers from a
// configurable template. It uses Go's text/template package with custom
// functions for date and number formatting.
package numbering

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/erp/invoicing/internal/domain/invoicing"
)

// TemplateRenderer implements invoicing.FullNumberRenderer on top of
// text/template. Unknown fields and unparsable templates are reported
// as errors, never silently swallowed. Parsed templates are cached per
// format string; a parsed template is safe for concurrent execution.
type TemplateRenderer struct {
	funcMap template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// RendererOption configures the renderer
type RendererOption func(*TemplateRenderer)

// WithFunc adds or overrides a template function
func WithFunc(name string, fn interface{}) RendererOption {
	return func(r *TemplateRenderer) {
		r.funcMap[name] = fn
	}
}

// NewTemplateRenderer creates a renderer with the default function set
func NewTemplateRenderer(opts ...RendererOption) *TemplateRenderer {
	r := &TemplateRenderer{cache: make(map[string]*template.Template)}

	r.funcMap = template.FuncMap{
		// Date formatting
		"formatDate": formatDate,

		// Number formatting
		"formatDecimal": formatDecimal,
		"padLeft":       padLeft,
		"padRight":      padRight,

		// String utilities
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"title": titleCase,
		"trim":  strings.TrimSpace,

		// Arithmetic
		"add": func(a, b int64) int64 { return a + b },
		"mod": func(a, b int64) int64 { return a % b },
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// renderContext is the data bound to the template. The invoice is
// exposed as .Invoice so formats read naturally, e.g.
// `{{ formatDate .Invoice.DateTaxPoint "2006" }}/{{ .Invoice.Number }}`.
type renderContext struct {
	Invoice *invoicing.Invoice
}

// Render renders the format string against the invoice's field values
func (r *TemplateRenderer) Render(format string, invoice *invoicing.Invoice) (string, error) {
	if format == "" {
		return "", fmt.Errorf("number format is empty")
	}
	if invoice == nil {
		return "", fmt.Errorf("invoice is nil")
	}

	tmpl, err := r.lookup(format)
	if err != nil {
		return "", fmt.Errorf("parsing number format: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, renderContext{Invoice: invoice}); err != nil {
		return "", fmt.Errorf("executing number format: %w", err)
	}

	rendered := strings.TrimSpace(buf.String())
	if rendered == "" {
		return "", fmt.Errorf("number format produced an empty result")
	}
	return rendered, nil
}

// Validate parses the format without executing it, reporting syntax
// errors and references to unknown functions
func (r *TemplateRenderer) Validate(format string) error {
	if format == "" {
		return fmt.Errorf("number format is empty")
	}
	if _, err := r.lookup(format); err != nil {
		return fmt.Errorf("parsing number format: %w", err)
	}
	return nil
}

// lookup returns the cached parsed template for the format, parsing
// and caching it on first use
func (r *TemplateRenderer) lookup(format string) (*template.Template, error) {
	r.mu.RLock()
	tmpl, ok := r.cache[format]
	r.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New("full_number").
		Funcs(r.funcMap).
		Option("missingkey=error").
		Parse(format)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[format] = tmpl
	r.mu.Unlock()
	return tmpl, nil
}

// formatDate formats a time value with a Go reference layout
func formatDate(t time.Time, layout string) string {
	return t.Format(layout)
}

// formatDecimal formats a decimal with a fixed number of places
func formatDecimal(v decimal.Decimal, places int32) string {
	return v.StringFixed(places)
}

// padLeft pads a value on the left up to the given width
// Example: padLeft 8 5 "0" -> "00008"
func padLeft(v interface{}, width int, pad string) string {
	s := fmt.Sprintf("%v", v)
	for len(s) < width {
		s = pad + s
	}
	return s
}

// padRight pads a value on the right up to the given width
func padRight(v interface{}, width int, pad string) string {
	s := fmt.Sprintf("%v", v)
	for len(s) < width {
		s += pad
	}
	return s
}

// titleCase converts a string to title case
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}
