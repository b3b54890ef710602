package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
	"github.com/taskdeck/taskdeck-backend/internal/templates/domain"
)

const templateColumns = `id, slug, name, description, category, is_builtin, owner_id, definition, created_at, updated_at`

type TemplateRepository struct {
	db postgres.DBTX
}

func NewTemplateRepository(db postgres.DBTX) *TemplateRepository {
	return &TemplateRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(row rowScanner) (*domain.Template, error) {
	var t domain.Template
	var slug, ownerID sql.NullString
	var definition []byte

	err := row.Scan(&t.ID, &slug, &t.Name, &t.Description, &t.Category, &t.Builtin, &ownerID,
		&definition, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t.Slug = slug.String
	if ownerID.Valid {
		t.OwnerID = &ownerID.String
	}
	if err := json.Unmarshal(definition, &t.Definition); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", t.ID, err)
	}
	return &t, nil
}

// ListVisible returns the built-in templates and those owned by userID.
func (r *TemplateRepository) ListVisible(ctx context.Context, userID string) ([]domain.Template, error) {
	q := `SELECT ` + templateColumns + ` FROM project_templates
WHERE is_builtin OR owner_id = $1
ORDER BY is_builtin DESC, name`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Template, 0, 8)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	return scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM project_templates WHERE id = $1`, id))
}

func (r *TemplateRepository) Create(ctx context.Context, t *domain.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	definition, err := json.Marshal(t.Definition)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO project_templates (id, slug, name, description, category, is_builtin, owner_id, definition)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
RETURNING created_at, updated_at;
`
	err = r.db.QueryRowContext(ctx, q, t.ID, t.Slug, t.Name, t.Description, t.Category, t.Builtin, t.OwnerID, definition).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// UpsertBuiltin inserts or refreshes a built-in template keyed by slug.
func (r *TemplateRepository) UpsertBuiltin(ctx context.Context, t *domain.Template) error {
	definition, err := json.Marshal(t.Definition)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO project_templates (id, slug, name, description, category, is_builtin, definition)
VALUES ($1, $2, $3, $4, $5, true, $6)
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    category = EXCLUDED.category,
    is_builtin = true,
    definition = EXCLUDED.definition,
    updated_at = now()
RETURNING id, created_at, updated_at;
`
	err = r.db.QueryRowContext(ctx, q, uuid.NewString(), t.Slug, t.Name, t.Description, t.Category, definition).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert template %s: %w", t.Slug, err)
	}
	t.Builtin = true
	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM project_templates WHERE id = $1 AND NOT is_builtin`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
