package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"money": func(v float64) string {
			return fmt.Sprintf("$%.2f", v)
		},
	}

	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(reportTemplateHTML))
}

// TemplateData holds data for report template rendering
type TemplateData struct {
	OrgName     string
	GeneratedAt time.Time
	Stages      []StageRow
	Leads       []LeadRow
	TotalValue  float64
	WonValue    float64
}

// RenderReportHTML renders the pipeline report template with provided data
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Pipeline Report - {{.OrgName}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #0f766e; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    table { width: 100%; border-collapse: collapse; margin: 1rem 0; }
    th, td { border: 1px solid #ddd; padding: 0.5rem; text-align: left; }
    th { background: #f5f5f5; }
    .totals { background: #f0fdfa; padding: 1rem; margin: 1rem 0; border-left: 3px solid #0f766e; }
  </style>
</head>
<body>
  <h1>Pipeline Report</h1>
  <div class="meta">{{.OrgName}} | {{.GeneratedAt.Format "Jan 2, 2006"}}</div>

  <div class="totals">
    <p>Open pipeline value: {{money .TotalValue}}</p>
    <p>Won this month: {{money .WonValue}}</p>
  </div>

  <h2>By Stage</h2>
  <table>
    <tr><th>Stage</th><th>Leads</th><th>Value</th></tr>
    {{range .Stages}}
    <tr><td>{{.Stage}}</td><td>{{.Count}}</td><td>{{money .TotalValue}}</td></tr>
    {{end}}
  </table>

  {{if .Leads}}
  <h2>Leads</h2>
  <table>
    <tr><th>Name</th><th>Company</th><th>Stage</th><th>Value</th><th>Probability</th></tr>
    {{range .Leads}}
    <tr><td>{{.Name}}</td><td>{{.Company}}</td><td>{{.PipelineStage}}</td><td>{{money .EstimatedValue}}</td><td>{{.Probability}}%</td></tr>
    {{end}}
  </table>
  {{end}}
</body>
</html>`
