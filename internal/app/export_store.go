package app

import (
	"context"
	"time"

	"traction/api/internal/export"
	"traction/api/internal/store"
)

// exportStore adapts the Postgres store to the export package's flat
// report rows.
type exportStore struct {
	store *store.PostgresStore
}

// NewExportStore wraps the data store for report generation.
func NewExportStore(dataStore *store.PostgresStore) export.DataStore {
	return &exportStore{store: dataStore}
}

func (e *exportStore) GetOrganizationName(ctx context.Context, orgID string) (string, error) {
	org, err := e.store.GetOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}
	return org.Name, nil
}

func (e *exportStore) PipelineSummary(ctx context.Context, orgID string) ([]export.StageRow, error) {
	summaries, err := e.store.PipelineSummary(ctx, orgID)
	if err != nil {
		return nil, err
	}
	rows := make([]export.StageRow, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, export.StageRow{
			Stage:      summary.PipelineStage,
			Count:      summary.Count,
			TotalValue: summary.TotalValue,
		})
	}
	return rows, nil
}

func (e *exportStore) ListLeadRows(ctx context.Context, orgID string) ([]export.LeadRow, error) {
	leads, err := e.store.ListLeads(ctx, orgID)
	if err != nil {
		return nil, err
	}
	rows := make([]export.LeadRow, 0, len(leads))
	for _, lead := range leads {
		rows = append(rows, export.LeadRow{
			Name:           lead.Name,
			Company:        lead.Company,
			PipelineStage:  lead.PipelineStage,
			EstimatedValue: lead.EstimatedValue,
			Probability:    lead.Probability,
			CreatedAt:      lead.CreatedAt,
		})
	}
	return rows, nil
}

func (e *exportStore) WonValueSince(ctx context.Context, orgID string, since time.Time) (float64, error) {
	return e.store.WonValueSince(ctx, orgID, since)
}
