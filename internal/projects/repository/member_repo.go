package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
)

func (r *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]domain.Member, error) {
	const q = `
SELECT m.project_id, m.user_id, m.role, u.email, u.display_name, m.added_at
FROM project_members m
JOIN users u ON u.id = m.user_id
WHERE m.project_id = $1
ORDER BY m.added_at;
`
	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Member, 0, 8)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.Email, &m.DisplayName, &m.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// FindUserByEmail returns the id and display name of a registered user.
func (r *ProjectRepository) FindUserByEmail(ctx context.Context, email string) (string, string, error) {
	var id, name string
	err := r.db.QueryRowContext(ctx, `SELECT id, display_name FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email))).Scan(&id, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", domain.ErrUserNotFound
	}
	return id, name, err
}

func (r *ProjectRepository) AddMember(ctx context.Context, projectID, userID, role string) (time.Time, error) {
	const q = `
INSERT INTO project_members (project_id, user_id, role)
VALUES ($1, $2, $3)
RETURNING added_at;
`
	var addedAt time.Time
	err := r.db.QueryRowContext(ctx, q, projectID, userID, role).Scan(&addedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return time.Time{}, domain.ErrMemberExists
		}
		return time.Time{}, fmt.Errorf("add member: %w", err)
	}
	return addedAt, nil
}

func (r *ProjectRepository) UpdateMemberRole(ctx context.Context, projectID, userID, role string) error {
	return r.execMember(ctx, `UPDATE project_members SET role = $3 WHERE project_id = $1 AND user_id = $2`, projectID, userID, role)
}

func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	return r.execMember(ctx, `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
}

func (r *ProjectRepository) execMember(ctx context.Context, q string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}
