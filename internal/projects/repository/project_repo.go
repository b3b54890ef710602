package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
)

const projectColumns = `p.id, p.public_id, p.owner_id, p.name, p.description, p.status, p.priority,
p.color, p.tags, p.start_date, p.due_date, p.template_id, p.created_at, p.updated_at`

const publicIDAttempts = 5

// ProjectRepository provides persistence operations for projects and their members.
type ProjectRepository struct {
	db postgres.DBTX
}

// NewProjectRepository accepts a *sql.DB or a *sql.Tx.
func NewProjectRepository(db postgres.DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner, extra ...interface{}) (*domain.Project, error) {
	var p domain.Project
	var startDate, dueDate sql.NullTime
	var templateID sql.NullString

	dest := []interface{}{
		&p.ID, &p.PublicID, &p.OwnerID, &p.Name, &p.Description, &p.Status, &p.Priority,
		&p.Color, pq.Array(&p.Tags), &startDate, &dueDate, &templateID, &p.CreatedAt, &p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if startDate.Valid {
		p.StartDate = &startDate.Time
	}
	if dueDate.Valid {
		p.DueDate = &dueDate.Time
	}
	if templateID.Valid {
		p.TemplateID = &templateID.String
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

// Create inserts the project and its owner membership in one statement.
// p.ID and p.PublicID are generated; the public id is retried on collision.
func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	if p.OwnerID == "" {
		return fmt.Errorf("owner id required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	const q = `
WITH p AS (
  INSERT INTO projects (id, public_id, owner_id, name, description, status, priority, color, tags, start_date, due_date, template_id)
  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
  ON CONFLICT (public_id) DO NOTHING
  RETURNING id, created_at, updated_at
), m AS (
  INSERT INTO project_members (project_id, user_id, role)
  SELECT id, $3, 'owner' FROM p
)
SELECT created_at, updated_at FROM p;
`
	for i := 0; i < publicIDAttempts; i++ {
		publicID, err := domain.NewPublicID()
		if err != nil {
			return err
		}

		err = r.db.QueryRowContext(ctx, q,
			p.ID, publicID, p.OwnerID, p.Name, p.Description, p.Status, p.Priority,
			p.Color, pq.Array(p.Tags), p.StartDate, p.DueDate, p.TemplateID,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err == nil {
			p.PublicID = publicID
			return nil
		}

		// public_id collision → retry
		if errors.Is(err, sql.ErrNoRows) || postgres.IsUniqueViolation(err) {
			continue
		}
		return fmt.Errorf("insert project: %w", err)
	}

	return fmt.Errorf("failed to generate unique project id")
}

// GetForUser returns a project the user is a member of, with the user's role set.
func (r *ProjectRepository) GetForUser(ctx context.Context, userID, publicID string) (*domain.Project, error) {
	q := `
SELECT ` + projectColumns + `, m.role
FROM projects p
JOIN project_members m ON m.project_id = p.id AND m.user_id = $1
WHERE p.public_id = $2 AND p.deleted_at IS NULL`

	var role string
	p, err := scanProject(r.db.QueryRowContext(ctx, q, userID, publicID), &role)
	if err != nil {
		return nil, err
	}
	p.Role = role
	return p, nil
}

// GetByID returns a live project regardless of membership.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	q := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = $1 AND p.deleted_at IS NULL`
	return scanProject(r.db.QueryRowContext(ctx, q, id))
}

// Access resolves the user's membership by public id.
func (r *ProjectRepository) Access(ctx context.Context, userID, publicID string) (*domain.Access, error) {
	const q = `
SELECT p.id, p.public_id, m.role
FROM projects p
JOIN project_members m ON m.project_id = p.id AND m.user_id = $1
WHERE p.public_id = $2 AND p.deleted_at IS NULL`
	return r.access(ctx, q, userID, publicID)
}

// AccessByID resolves the user's membership by internal project id.
func (r *ProjectRepository) AccessByID(ctx context.Context, userID, projectID string) (*domain.Access, error) {
	if uuid.Validate(projectID) != nil || uuid.Validate(userID) != nil {
		return nil, domain.ErrNotFound
	}
	const q = `
SELECT p.id, p.public_id, m.role
FROM projects p
JOIN project_members m ON m.project_id = p.id AND m.user_id = $1
WHERE p.id = $2 AND p.deleted_at IS NULL`
	return r.access(ctx, q, userID, projectID)
}

func (r *ProjectRepository) access(ctx context.Context, q, userID, key string) (*domain.Access, error) {
	a := domain.Access{UserID: userID}
	err := r.db.QueryRowContext(ctx, q, userID, key).Scan(&a.ProjectID, &a.PublicID, &a.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// List returns the live projects the user is a member of, newest activity first, and the total count.
func (r *ProjectRepository) List(ctx context.Context, f domain.ListFilter) ([]domain.Project, int, error) {
	q := `
SELECT ` + projectColumns + `, m.role, count(*) OVER()
FROM projects p
JOIN project_members m ON m.project_id = p.id AND m.user_id = $1
WHERE p.deleted_at IS NULL
  AND ($2 = '' OR p.status = $2)
  AND ($3 = '' OR p.name ILIKE '%' || $3 || '%' OR p.description ILIKE '%' || $3 || '%')
ORDER BY p.updated_at DESC
LIMIT $4 OFFSET $5;
`
	rows, err := r.db.QueryContext(ctx, q, f.UserID, f.Status, strings.TrimSpace(f.Query), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	total := 0
	for rows.Next() {
		var role string
		p, err := scanProject(rows, &role, &total)
		if err != nil {
			return nil, 0, err
		}
		p.Role = role
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update writes the mutable fields of p.
func (r *ProjectRepository) Update(ctx context.Context, p *domain.Project) error {
	const q = `
UPDATE projects
SET name = $2, description = $3, status = $4, priority = $5, color = $6, tags = $7,
    start_date = $8, due_date = $9, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING updated_at;
`
	err := r.db.QueryRowContext(ctx, q,
		p.ID, p.Name, p.Description, p.Status, p.Priority, p.Color, pq.Array(p.Tags), p.StartDate, p.DueDate,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// SoftDelete marks a project as deleted.
func (r *ProjectRepository) SoftDelete(ctx context.Context, id string) (bool, error) {
	const q = `
UPDATE projects
SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL;
`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
