package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across leads, tasks, and objectives
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" || q.OrgID == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text, q.OrgID}

	var subQueries []string

	// Leads sub-query
	if q.FilterType == "" || q.FilterType == ResultLead {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'lead'::text AS type, l.id, l.name AS title,
				ts_headline('english', coalesce(l.company, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				l.org_id, l.pipeline_stage AS stage,
				ts_rank(l.fts, %s) AS rank
			FROM leads l
			WHERE l.fts @@ %s AND l.org_id = $2 AND l.deleted_at IS NULL`, tsQuery, tsQuery, tsQuery))
	}

	// Tasks sub-query
	if q.FilterType == "" || q.FilterType == ResultTask {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'task'::text AS type, t.id, t.title,
				ts_headline('english', coalesce(t.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				t.org_id, ''::text AS stage,
				ts_rank(t.fts, %s) AS rank
			FROM tasks t
			WHERE t.fts @@ %s AND t.org_id = $2`, tsQuery, tsQuery, tsQuery))
	}

	// Objectives sub-query
	if q.FilterType == "" || q.FilterType == ResultObjective {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'objective'::text AS type, o.id, o.title,
				''::text AS snippet,
				o.org_id, ''::text AS stage,
				ts_rank(o.fts, %s) AS rank
			FROM objectives o
			WHERE o.fts @@ %s AND o.org_id = $2`, tsQuery, tsQuery))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	// Count query
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	// Data query
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, org_id, stage
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.OrgID, &r.Stage); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]LeadRecord, []TaskRecord, []ObjectiveRecord, error) {
	leadRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(company, ''), org_id, pipeline_stage
		FROM leads
		WHERE deleted_at IS NULL
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load leads: %w", err)
	}
	defer leadRows.Close()

	leads := make([]LeadRecord, 0)
	for leadRows.Next() {
		var l LeadRecord
		if err := leadRows.Scan(&l.ID, &l.Name, &l.Company, &l.OrgID, &l.PipelineStage); err != nil {
			return nil, nil, nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	if err := leadRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate leads: %w", err)
	}

	taskRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(description, ''), org_id, COALESCE(area, '')
		FROM tasks
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	defer taskRows.Close()

	tasks := make([]TaskRecord, 0)
	for taskRows.Next() {
		var t TaskRecord
		if err := taskRows.Scan(&t.ID, &t.Title, &t.Description, &t.OrgID, &t.Area); err != nil {
			return nil, nil, nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := taskRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate tasks: %w", err)
	}

	objectiveRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, org_id, quarter, year
		FROM objectives
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load objectives: %w", err)
	}
	defer objectiveRows.Close()

	objectives := make([]ObjectiveRecord, 0)
	for objectiveRows.Next() {
		var o ObjectiveRecord
		if err := objectiveRows.Scan(&o.ID, &o.Title, &o.OrgID, &o.Quarter, &o.Year); err != nil {
			return nil, nil, nil, fmt.Errorf("scan objective: %w", err)
		}
		objectives = append(objectives, o)
	}
	if err := objectiveRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate objectives: %w", err)
	}

	return leads, tasks, objectives, nil
}
