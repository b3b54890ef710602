package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
)

const ruleColumns = `id, project_id, name, trigger, trigger_value, action, action_value, enabled,
fire_count, last_fired_at, created_by, created_at, updated_at`

type RuleRepository struct {
	db postgres.DBTX
}

// NewRuleRepository accepts a *sql.DB or a *sql.Tx.
func NewRuleRepository(db postgres.DBTX) *RuleRepository {
	return &RuleRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var r domain.Rule
	var lastFired sql.NullTime
	err := row.Scan(&r.ID, &r.ProjectID, &r.Name, &r.Trigger, &r.TriggerValue, &r.Action, &r.ActionValue,
		&r.Enabled, &r.FireCount, &lastFired, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if lastFired.Valid {
		r.LastFiredAt = &lastFired.Time
	}
	return &r, nil
}

func (r *RuleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	const q = `
INSERT INTO automation_rules (id, project_id, name, trigger, trigger_value, action, action_value, enabled, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at;
`
	err := r.db.QueryRowContext(ctx, q, rule.ID, rule.ProjectID, rule.Name, rule.Trigger, rule.TriggerValue,
		rule.Action, rule.ActionValue, rule.Enabled, rule.CreatedBy).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*domain.Rule, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrNotFound
	}
	return scanRule(r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE id = $1`, id))
}

func (r *RuleRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Rule, error) {
	return r.query(ctx, `SELECT `+ruleColumns+` FROM automation_rules WHERE project_id = $1 ORDER BY created_at`, projectID)
}

// ListEnabled returns the project's enabled rules for a trigger.
func (r *RuleRepository) ListEnabled(ctx context.Context, projectID, trigger string) ([]domain.Rule, error) {
	q := `SELECT ` + ruleColumns + ` FROM automation_rules
WHERE project_id = $1 AND trigger = $2 AND enabled
ORDER BY created_at`
	return r.query(ctx, q, projectID, trigger)
}

func (r *RuleRepository) query(ctx context.Context, q string, args ...interface{}) ([]domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Rule, 0, 4)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

func (r *RuleRepository) Update(ctx context.Context, rule *domain.Rule) error {
	const q = `
UPDATE automation_rules
SET name = $2, trigger = $3, trigger_value = $4, action = $5, action_value = $6, enabled = $7, updated_at = now()
WHERE id = $1
RETURNING updated_at;
`
	err := r.db.QueryRowContext(ctx, q, rule.ID, rule.Name, rule.Trigger, rule.TriggerValue,
		rule.Action, rule.ActionValue, rule.Enabled).Scan(&rule.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM automation_rules WHERE id = $1`, id)
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

// RecordFire bumps the rule's fire counter in place.
func (r *RuleRepository) RecordFire(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE automation_rules SET fire_count = fire_count + 1, last_fired_at = $2 WHERE id = $1`, id, at)
	return err
}
