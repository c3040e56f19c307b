package store

import (
	"context"
	"fmt"
	"time"
)

func (s *PostgresStore) ListObjectives(ctx context.Context, orgID string) ([]Objective, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, owner_user_id, title, quarter, year, COALESCE(phase, ''), status, target_date, created_at, updated_at
		FROM objectives
		WHERE org_id=$1
		ORDER BY year DESC, quarter DESC, created_at DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	defer rows.Close()

	items := make([]Objective, 0)
	for rows.Next() {
		var item Objective
		if err := rows.Scan(
			&item.ID,
			&item.OrgID,
			&item.OwnerUserID,
			&item.Title,
			&item.Quarter,
			&item.Year,
			&item.Phase,
			&item.Status,
			&item.TargetDate,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan objective: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objectives: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetObjective(ctx context.Context, orgID, objectiveID string) (Objective, error) {
	var item Objective
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, owner_user_id, title, quarter, year, COALESCE(phase, ''), status, target_date, created_at, updated_at
		FROM objectives
		WHERE org_id=$1 AND id=$2
	`, orgID, objectiveID).Scan(
		&item.ID,
		&item.OrgID,
		&item.OwnerUserID,
		&item.Title,
		&item.Quarter,
		&item.Year,
		&item.Phase,
		&item.Status,
		&item.TargetDate,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Objective{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertObjective(ctx context.Context, objective Objective) error {
	status := objective.Status
	if status == "" {
		status = "active"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO objectives (id, org_id, owner_user_id, title, quarter, year, phase, status, target_date)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`, objective.ID, objective.OrgID, objective.OwnerUserID, objective.Title, objective.Quarter, objective.Year, objective.Phase, status, objective.TargetDate)
	if err != nil {
		return fmt.Errorf("insert objective: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListKeyResults(ctx context.Context, objectiveID string) ([]KeyResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, objective_id, title, start_value, target_value, current_value, weight, metric_type, created_at, updated_at
		FROM key_results
		WHERE objective_id=$1
		ORDER BY created_at ASC
	`, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("list key results: %w", err)
	}
	defer rows.Close()

	items := make([]KeyResult, 0)
	for rows.Next() {
		var item KeyResult
		if err := rows.Scan(
			&item.ID,
			&item.ObjectiveID,
			&item.Title,
			&item.StartValue,
			&item.TargetValue,
			&item.CurrentValue,
			&item.Weight,
			&item.MetricType,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan key result: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate key results: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertKeyResult(ctx context.Context, kr KeyResult) error {
	metricType := kr.MetricType
	if metricType == "" {
		metricType = "number"
	}
	weight := kr.Weight
	if weight == 0 {
		weight = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO key_results (id, objective_id, title, start_value, target_value, current_value, weight, metric_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, kr.ID, kr.ObjectiveID, kr.Title, kr.StartValue, kr.TargetValue, kr.CurrentValue, weight, metricType)
	if err != nil {
		return fmt.Errorf("insert key result: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateKeyResultValue(ctx context.Context, keyResultID string, currentValue float64) (KeyResult, error) {
	var item KeyResult
	err := s.db.QueryRowContext(ctx, `
		UPDATE key_results
		SET current_value=$2, updated_at=NOW()
		WHERE id=$1
		RETURNING id, objective_id, title, start_value, target_value, current_value, weight, metric_type, created_at, updated_at
	`, keyResultID, currentValue).Scan(
		&item.ID,
		&item.ObjectiveID,
		&item.Title,
		&item.StartValue,
		&item.TargetValue,
		&item.CurrentValue,
		&item.Weight,
		&item.MetricType,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return KeyResult{}, err
	}
	return item, nil
}

func (s *PostgresStore) CountActiveObjectives(ctx context.Context, orgID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM objectives WHERE org_id=$1 AND status='active'
	`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active objectives: %w", err)
	}
	return count, nil
}

// InsertAIGeneration records one completed AI generation for monthly
// plan-quota accounting.
func (s *PostgresStore) InsertAIGeneration(ctx context.Context, orgID, userID, kind string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_generations (org_id, user_id, kind)
		VALUES ($1, $2, $3)
	`, orgID, userID, kind)
	if err != nil {
		return fmt.Errorf("insert ai generation: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountAIGenerationsSince(ctx context.Context, orgID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ai_generations WHERE org_id=$1 AND created_at >= $2
	`, orgID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count ai generations since: %w", err)
	}
	return count, nil
}
