package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck-backend/internal/reports/domain"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
)

const visibleProjects = `SELECT p.id FROM projects p
JOIN project_members pm ON pm.project_id = p.id AND pm.user_id = $1
WHERE p.deleted_at IS NULL`

type ReportRepository struct {
	db postgres.DBTX
}

func NewReportRepository(db postgres.DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

// ProjectIDs lists the live projects the user is a member of.
func (r *ReportRepository) ProjectIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, visibleProjects, userID)
	if err != nil {
		return nil, fmt.Errorf("list member projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ReportRepository) ProjectsByStatus(ctx context.Context, userID string) (map[string]int, error) {
	q := `SELECT p.status, count(*) FROM projects p
JOIN project_members pm ON pm.project_id = p.id AND pm.user_id = $1
WHERE p.deleted_at IS NULL
GROUP BY p.status`
	return r.counts(ctx, "count projects by status", q, userID)
}

func (r *ReportRepository) TasksByStatus(ctx context.Context, userID string) (map[string]int, error) {
	q := `SELECT t.status, count(*) FROM tasks t
WHERE t.deleted_at IS NULL AND t.project_id IN (` + visibleProjects + `)
GROUP BY t.status`
	return r.counts(ctx, "count tasks by status", q, userID)
}

// Deadlines counts open tasks across the user's projects: overdue at now,
// due within [now, weekEnd) and assigned to the user.
func (r *ReportRepository) Deadlines(ctx context.Context, userID string, now, weekEnd time.Time) (domain.DeadlineCounts, error) {
	q := `SELECT
  count(*) FILTER (WHERE t.due_date < $2),
  count(*) FILTER (WHERE t.due_date >= $2 AND t.due_date < $3),
  count(*) FILTER (WHERE t.assignee_id = $1)
FROM tasks t
WHERE t.deleted_at IS NULL AND t.status <> 'done' AND t.project_id IN (` + visibleProjects + `)`

	var c domain.DeadlineCounts
	err := r.db.QueryRowContext(ctx, q, userID, now, weekEnd).Scan(&c.Overdue, &c.DueThisWeek, &c.AssignedOpen)
	if err != nil {
		return c, fmt.Errorf("count deadlines: %w", err)
	}
	return c, nil
}

func (r *ReportRepository) ProjectTasksByStatus(ctx context.Context, projectID string) (map[string]int, error) {
	q := `SELECT status, count(*) FROM tasks WHERE project_id = $1 AND deleted_at IS NULL GROUP BY status`
	return r.counts(ctx, "count project tasks by status", q, projectID)
}

func (r *ReportRepository) ProjectTasksByPriority(ctx context.Context, projectID string) (map[string]int, error) {
	q := `SELECT priority, count(*) FROM tasks WHERE project_id = $1 AND deleted_at IS NULL GROUP BY priority`
	return r.counts(ctx, "count project tasks by priority", q, projectID)
}

func (r *ReportRepository) ProjectOverdue(ctx context.Context, projectID string, now time.Time) (int, error) {
	q := `SELECT count(*) FROM tasks
WHERE project_id = $1 AND deleted_at IS NULL AND status <> 'done' AND due_date < $2`
	var n int
	if err := r.db.QueryRowContext(ctx, q, projectID, now).Scan(&n); err != nil {
		return 0, fmt.Errorf("count overdue tasks: %w", err)
	}
	return n, nil
}

func (r *ReportRepository) Milestones(ctx context.Context, projectID string) ([]domain.MilestoneProgress, error) {
	q := `SELECT m.id, m.title, count(t.id), count(t.id) FILTER (WHERE t.status = 'done')
FROM milestones m
LEFT JOIN tasks t ON t.milestone_id = m.id AND t.deleted_at IS NULL
WHERE m.project_id = $1
GROUP BY m.id
ORDER BY m.due_date NULLS LAST, m.created_at`

	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("milestone progress: %w", err)
	}
	defer rows.Close()

	out := []domain.MilestoneProgress{}
	for rows.Next() {
		var m domain.MilestoneProgress
		if err := rows.Scan(&m.ID, &m.Title, &m.Total, &m.Done); err != nil {
			return nil, err
		}
		m.Percent = domain.Percent(m.Done, m.Total)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ReportRepository) Workload(ctx context.Context, projectID string) ([]domain.Workload, error) {
	q := `SELECT assignee_id, count(*) FILTER (WHERE status <> 'done'), count(*) FILTER (WHERE status = 'done')
FROM tasks
WHERE project_id = $1 AND deleted_at IS NULL
GROUP BY assignee_id
ORDER BY assignee_id NULLS LAST`

	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("workload: %w", err)
	}
	defer rows.Close()

	out := []domain.Workload{}
	for rows.Next() {
		var (
			w        domain.Workload
			assignee sql.NullString
		)
		if err := rows.Scan(&assignee, &w.Open, &w.Done); err != nil {
			return nil, err
		}
		w.UserID = assignee.String
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *ReportRepository) counts(ctx context.Context, op, q string, args ...any) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
