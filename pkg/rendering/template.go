// Package rendering renders SQL templates with Sprig functions and
// identifier quoting helpers.
package rendering

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// TemplateEngine renders SQL templates. Besides the Sprig functions,
// templates can call pgIdent and chIdent to quote identifiers.
type TemplateEngine struct {
	funcMap template.FuncMap
}

// NewTemplateEngine creates a new template engine
func NewTemplateEngine() *TemplateEngine {
	funcMap := sprig.TxtFuncMap()
	funcMap["pgIdent"] = QuotePostgres
	funcMap["chIdent"] = QuoteClickHouse

	return &TemplateEngine{funcMap: funcMap}
}

// QuotePostgres quotes a PostgreSQL identifier, doubling embedded quotes.
func QuotePostgres(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteClickHouse quotes a ClickHouse identifier with backticks.
func QuoteClickHouse(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

// Render renders a named template with the given variables. Missing
// variables are an error. Surrounding whitespace is trimmed.
func (t *TemplateEngine) Render(name, content string, variables map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Funcs(t.funcMap).Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, variables); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// RenderAll renders every template in templates by name, in name order,
// stopping at the first failure.
func (t *TemplateEngine) RenderAll(templates map[string]string, variables map[string]interface{}) (map[string]string, error) {
	rendered := make(map[string]string, len(templates))

	for _, name := range slices.Sorted(maps.Keys(templates)) {
		out, err := t.Render(name, templates[name], variables)
		if err != nil {
			return nil, err
		}

		rendered[name] = out
	}

	return rendered, nil
}
