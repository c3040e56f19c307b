// Package export renders pipeline reports as PDF or CSV.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
)

// Request contains parameters for an export operation
type Request struct {
	OrgID  string
	Format Format
}

// Result contains the export output
type Result struct {
	Data       []byte
	Filename   string
	MimeType   string
	ArchiveURL string
}

// StageRow is one pipeline stage aggregate in the report.
type StageRow struct {
	Stage      string
	Count      int
	TotalValue float64
}

// LeadRow is one lead line in the report.
type LeadRow struct {
	Name           string
	Company        string
	PipelineStage  string
	EstimatedValue float64
	Probability    int
	CreatedAt      time.Time
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
