package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
)

var ruleCols = []string{"id", "project_id", "name", "trigger", "trigger_value", "action", "action_value", "enabled",
	"fire_count", "last_fired_at", "created_by", "created_at", "updated_at"}

func setupRepo(t *testing.T) (*RuleRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRuleRepository(db), mock
}

func TestRuleRepository_ListEnabled(t *testing.T) {
	repo, mock := setupRepo(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE project_id = \$1 AND trigger = \$2 AND enabled`).
		WithArgs("p1", domain.TriggerTaskCreated).
		WillReturnRows(sqlmock.NewRows(ruleCols).
			AddRow("r1", "p1", "tag new", "task_created", "", "add_tag", "new", true, 3, now, "u1", now, now))

	rules, err := repo.ListEnabled(context.Background(), "p1", domain.TriggerTaskCreated)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, 3, rules[0].FireCount)
	require.NotNil(t, rules[0].LastFiredAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_RecordFire(t *testing.T) {
	repo, mock := setupRepo(t)
	at := time.Now()

	mock.ExpectExec(`SET fire_count = fire_count \+ 1, last_fired_at = \$2 WHERE id = \$1`).
		WithArgs("r1", at).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordFire(context.Background(), "r1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRuleRepository_CreateAndDelete(t *testing.T) {
	repo, mock := setupRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO automation_rules`).
		WithArgs(sqlmock.AnyArg(), "p1", "n", "task_overdue", "", "notify_assignee", "", true, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	rule := &domain.Rule{ProjectID: "p1", Name: "n", Trigger: "task_overdue", Action: "notify_assignee", Enabled: true, CreatedBy: "u1"}
	require.NoError(t, repo.Create(context.Background(), rule))
	assert.NotEmpty(t, rule.ID)

	mock.ExpectExec(`DELETE FROM automation_rules`).WithArgs(rule.ID).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), rule.ID), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
