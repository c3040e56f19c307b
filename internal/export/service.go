package export

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetOrganizationName(ctx context.Context, orgID string) (string, error)
	PipelineSummary(ctx context.Context, orgID string) ([]StageRow, error)
	ListLeadRows(ctx context.Context, orgID string) ([]LeadRow, error)
	WonValueSince(ctx context.Context, orgID string, since time.Time) (float64, error)
}

// Service provides pipeline report export functionality
type Service struct {
	store    DataStore
	archiver *Archiver
}

// NewService creates a new export service. archiver may be nil.
func NewService(store DataStore, archiver *Archiver) *Service {
	return &Service{store: store, archiver: archiver}
}

// Export generates a pipeline report in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	orgName, err := s.store.GetOrganizationName(ctx, req.OrgID)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	stages, err := s.store.PipelineSummary(ctx, req.OrgID)
	if err != nil {
		return nil, fmt.Errorf("pipeline summary: %w", err)
	}

	leads, err := s.store.ListLeadRows(ctx, req.OrgID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	wonValue, err := s.store.WonValueSince(ctx, req.OrgID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("won value: %w", err)
	}

	var totalValue float64
	for _, stage := range stages {
		if stage.Stage != "closed_won" && stage.Stage != "closed_lost" {
			totalValue += stage.TotalValue
		}
	}

	title := orgName + " Pipeline Report"
	var result *Result
	switch req.Format {
	case FormatCSV:
		result, err = exportCSV(title, leads)
	case FormatPDF:
		var html string
		html, err = RenderReportHTML(TemplateData{
			OrgName:     orgName,
			GeneratedAt: now,
			Stages:      stages,
			Leads:       leads,
			TotalValue:  totalValue,
			WonValue:    wonValue,
		})
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		result, err = exportPDF(html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
	if err != nil {
		return nil, err
	}

	// Archive the report when object storage is configured. A failed
	// upload does not fail the export.
	if s.archiver != nil {
		objectName, err := s.archiver.Store(ctx, req.OrgID, result)
		if err != nil {
			log.Printf("export: archive failed: %v", err)
		} else {
			result.ArchiveURL = objectName
		}
	}

	return result, nil
}
