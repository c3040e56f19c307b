package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const leadColumns = `
	id, org_id, name, COALESCE(company, ''), stage, pipeline_stage,
	estimated_value, probability, COALESCE(assigned_to, ''), COALESCE(created_by, ''),
	last_contact_date, won_date, lost_date, deleted_at, created_at, updated_at
`

func scanLead(row interface{ Scan(...any) error }) (Lead, error) {
	var item Lead
	err := row.Scan(
		&item.ID,
		&item.OrgID,
		&item.Name,
		&item.Company,
		&item.Stage,
		&item.PipelineStage,
		&item.EstimatedValue,
		&item.Probability,
		&item.AssignedTo,
		&item.CreatedBy,
		&item.LastContactDate,
		&item.WonDate,
		&item.LostDate,
		&item.DeletedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) ListLeads(ctx context.Context, orgID string) ([]Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE org_id=$1 AND deleted_at IS NULL
		ORDER BY updated_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		item, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, orgID, leadID string) (Lead, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE org_id=$1 AND id=$2 AND deleted_at IS NULL
	`, orgID, leadID)
	item, err := scanLead(row)
	if err != nil {
		return Lead{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertLead(ctx context.Context, lead Lead) error {
	stage := lead.Stage
	if stage == "" {
		stage = "new"
	}
	pipelineStage := lead.PipelineStage
	if pipelineStage == "" {
		pipelineStage = "discovery"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, org_id, name, company, stage, pipeline_stage, estimated_value, probability, assigned_to, created_by, last_contact_date)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)
	`, lead.ID, lead.OrgID, lead.Name, lead.Company, stage, pipelineStage, lead.EstimatedValue, lead.Probability, lead.AssignedTo, lead.CreatedBy, lead.LastContactDate)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateLeadFields(ctx context.Context, orgID, leadID, name, company string, estimatedValue float64, probability int, assignedTo string, lastContactDate *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET name=$3, company=NULLIF($4, ''), estimated_value=$5, probability=$6, assigned_to=NULLIF($7, ''), last_contact_date=$8, updated_at=NOW()
		WHERE org_id=$1 AND id=$2 AND deleted_at IS NULL
	`, orgID, leadID, name, company, estimatedValue, probability, assignedTo, lastContactDate)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateLeadStage applies a pipeline move plus the derived companion fields.
// Won/lost dates pass through COALESCE so a populated date is never
// overwritten: terminal dates are stamped exactly once.
func (s *PostgresStore) UpdateLeadStage(ctx context.Context, orgID, leadID, pipelineStage, stage string, wonDate, lostDate *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET pipeline_stage=$3,
			stage=COALESCE(NULLIF($4, ''), stage),
			won_date=COALESCE(won_date, $5),
			lost_date=COALESCE(lost_date, $6),
			updated_at=NOW()
		WHERE org_id=$1 AND id=$2 AND deleted_at IS NULL
	`, orgID, leadID, pipelineStage, stage, wonDate, lostDate)
	if err != nil {
		return fmt.Errorf("update lead stage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead stage rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SoftDeleteLead(ctx context.Context, orgID, leadID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE leads SET deleted_at=NOW() WHERE org_id=$1 AND id=$2 AND deleted_at IS NULL
	`, orgID, leadID)
	if err != nil {
		return fmt.Errorf("soft delete lead: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete lead rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) CountLeadsCreatedSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leads WHERE org_id=$1 AND created_at >= $2 AND deleted_at IS NULL
	`, orgID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count leads since: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) PipelineSummary(ctx context.Context, orgID string) ([]StageSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pipeline_stage, COUNT(*)::int, COALESCE(SUM(estimated_value), 0)
		FROM leads
		WHERE org_id=$1 AND deleted_at IS NULL
		GROUP BY pipeline_stage
		ORDER BY pipeline_stage ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("pipeline summary: %w", err)
	}
	defer rows.Close()

	items := make([]StageSummary, 0)
	for rows.Next() {
		var item StageSummary
		if err := rows.Scan(&item.PipelineStage, &item.Count, &item.TotalValue); err != nil {
			return nil, fmt.Errorf("scan pipeline summary: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline summary: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) WonValueSince(ctx context.Context, orgID string, since time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(estimated_value), 0)
		FROM leads
		WHERE org_id=$1 AND deleted_at IS NULL AND pipeline_stage='closed_won' AND won_date >= $2
	`, orgID, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("won value since: %w", err)
	}
	return total, nil
}
