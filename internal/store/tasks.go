package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) GetTask(ctx context.Context, orgID, taskID string) (Task, error) {
	var item Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, user_id, leader_id, title, COALESCE(description, ''), COALESCE(area, ''), COALESCE(phase, ''), created_at, updated_at
		FROM tasks
		WHERE org_id=$1 AND id=$2
	`, orgID, taskID).Scan(
		&item.ID,
		&item.OrgID,
		&item.UserID,
		&item.LeaderID,
		&item.Title,
		&item.Description,
		&item.Area,
		&item.Phase,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Task{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListTasksForUser(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, user_id, leader_id, title, COALESCE(description, ''), COALESCE(area, ''), COALESCE(phase, ''), created_at, updated_at
		FROM tasks
		WHERE user_id=$1 OR leader_id=$1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(
			&item.ID,
			&item.OrgID,
			&item.UserID,
			&item.LeaderID,
			&item.Title,
			&item.Description,
			&item.Area,
			&item.Phase,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertTask(ctx context.Context, task Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, org_id, user_id, leader_id, title, description, area, phase)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
	`, task.ID, task.OrgID, task.UserID, task.LeaderID, task.Title, task.Description, task.Area, task.Phase)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTaskContent(ctx context.Context, orgID, taskID, title, description string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET title=$3, description=NULLIF($4, ''), updated_at=NOW() WHERE org_id=$1 AND id=$2
	`, orgID, taskID, title, description)
	if err != nil {
		return fmt.Errorf("update task content: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task content rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertTaskSwap appends to the swap audit trail. There is deliberately no
// update or delete counterpart: swap rows are immutable once written.
func (s *PostgresStore) InsertTaskSwap(ctx context.Context, swap TaskSwap) (TaskSwap, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO task_swaps (task_id, user_id, old_title, new_title, old_description, new_description, week_number, mode, leader_comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, swap.TaskID, swap.UserID, swap.OldTitle, swap.NewTitle, swap.OldDescription, swap.NewDescription, swap.WeekNumber, swap.Mode, swap.LeaderComment).Scan(&swap.ID, &swap.CreatedAt)
	if err != nil {
		return TaskSwap{}, fmt.Errorf("insert task swap: %w", err)
	}
	return swap, nil
}

func (s *PostgresStore) CountSwapsInWeek(ctx context.Context, userID string, weekNumber int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM task_swaps WHERE user_id=$1 AND week_number=$2
	`, userID, weekNumber).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count swaps in week: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ListTaskSwaps(ctx context.Context, taskID string) ([]TaskSwap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, user_id, old_title, new_title, COALESCE(old_description, ''), COALESCE(new_description, ''), week_number, mode, leader_comment, created_at
		FROM task_swaps
		WHERE task_id=$1
		ORDER BY created_at DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list task swaps: %w", err)
	}
	defer rows.Close()

	items := make([]TaskSwap, 0)
	for rows.Next() {
		var item TaskSwap
		if err := rows.Scan(
			&item.ID,
			&item.TaskID,
			&item.UserID,
			&item.OldTitle,
			&item.NewTitle,
			&item.OldDescription,
			&item.NewDescription,
			&item.WeekNumber,
			&item.Mode,
			&item.LeaderComment,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task swap: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task swaps: %w", err)
	}
	return items, nil
}
