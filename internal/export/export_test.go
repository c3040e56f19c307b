package export

import (
	"strings"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Acme Pipeline Report", "Acme-Pipeline-Report"},
		{"weird/<>chars!", "weirdchars"},
		{"", "report"},
		{strings.Repeat("a", 60), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"a-b_c.d~e", "a-b_c.d~e"},
		{"<html>", "%3Chtml%3E"},
	}
	for _, tt := range tests {
		if got := percentEncodeForDataURL(tt.input); got != tt.expected {
			t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderReportHTML(t *testing.T) {
	data := TemplateData{
		OrgName:     "Acme",
		GeneratedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Stages: []StageRow{
			{Stage: "discovery", Count: 3, TotalValue: 15000},
			{Stage: "closed_won", Count: 1, TotalValue: 8000},
		},
		Leads: []LeadRow{
			{Name: "Lead One", Company: "One Co", PipelineStage: "discovery", EstimatedValue: 5000, Probability: 20},
		},
		TotalValue: 15000,
		WonValue:   8000,
	}

	html, err := RenderReportHTML(data)
	if err != nil {
		t.Fatalf("RenderReportHTML failed: %v", err)
	}

	if !strings.Contains(html, "Acme") {
		t.Error("report should contain the organization name")
	}
	if !strings.Contains(html, "discovery") {
		t.Error("report should contain stage rows")
	}
	if !strings.Contains(html, "Lead One") {
		t.Error("report should contain lead rows")
	}
	if !strings.Contains(html, "$15000.00") {
		t.Error("report should contain the open pipeline value")
	}
}

func TestExportCSV(t *testing.T) {
	leads := []LeadRow{
		{Name: "Lead One", Company: "One Co", PipelineStage: "demo", EstimatedValue: 5000, Probability: 40, CreatedAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		{Name: "Lead, Two", Company: "Two Co", PipelineStage: "proposal", EstimatedValue: 12000.5, Probability: 60, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	result, err := exportCSV("Acme Pipeline Report", leads)
	if err != nil {
		t.Fatalf("exportCSV failed: %v", err)
	}

	if result.MimeType != "text/csv" {
		t.Errorf("mime type = %q", result.MimeType)
	}
	if result.Filename != "Acme-Pipeline-Report.csv" {
		t.Errorf("filename = %q", result.Filename)
	}

	content := string(result.Data)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "name,company,pipeline_stage") {
		t.Errorf("header = %q", lines[0])
	}
	// Comma in a field must be quoted
	if !strings.Contains(lines[2], `"Lead, Two"`) {
		t.Errorf("expected quoted field in %q", lines[2])
	}
	if !strings.Contains(lines[2], "12000.50") {
		t.Errorf("expected formatted value in %q", lines[2])
	}
}
