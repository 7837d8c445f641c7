package notify

import (
	"bytes"
	"errors"
	"html/template"
)

// DefaultTemplate renders the alert mail body: one row per triggered
// metric with its counters and thresholds, battery with its own row.
const DefaultTemplate = `<h3>Device alert: {{.Device}} ({{.Project}})</h3>
<p>Checked at {{.CheckedAt}}. The following checks crossed their thresholds:</p>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Metric</th><th>Consecutive failures</th><th>Total failures</th><th>Threshold</th><th>Last value</th></tr>
{{range .Rows}}<tr><td>{{.Metric}}</td><td>{{.Current}}</td><td>{{.Total}}</td><td>{{.Threshold}}</td><td>{{.LastValue}}</td></tr>
{{end}}</table>
<p>Battery level: {{.Battery}}</p>`

// TemplateRow is one triggered metric in the rendered report.
type TemplateRow struct {
	Metric    string
	Current   string
	Total     string
	Threshold string
	LastValue string
}

// TemplateData provides fields for rendering alert content.
type TemplateData struct {
	Device    string
	Project   string
	CheckedAt string
	Rows      []TemplateRow
	Battery   string
}

// Template renders alert message bodies.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an alert template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("device-alert").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
