package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

var taskCols = []string{"id", "project_id", "milestone_id", "title", "description", "status", "priority", "assignee_id",
	"reporter_id", "due_date", "estimate_hours", "position", "tags", "completed_at", "created_at", "updated_at"}

func setupTaskRepo(t *testing.T) (*TaskRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTaskRepository(db), mock
}

func TestTaskRepository_Create(t *testing.T) {
	repo, mock := setupTaskRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(sqlmock.AnyArg(), "p1", nil, "Write", "", "todo", "medium", nil,
			"u1", nil, nil, sqlmock.AnyArg(), nil).
		WillReturnRows(sqlmock.NewRows([]string{"position", "created_at", "updated_at"}).AddRow(4, now, now))

	task := &domain.Task{ProjectID: "p1", Title: "Write", Status: "todo", Priority: "medium", ReporterID: "u1"}
	require.NoError(t, repo.Create(context.Background(), task))
	assert.Equal(t, 4, task.Position)
	assert.NotEmpty(t, task.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_ListFilters(t *testing.T) {
	repo, mock := setupTaskRepo(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE project_id = \$1 AND deleted_at IS NULL AND status = \$2 AND assignee_id = \$3 AND title ILIKE '%' \|\| \$4 \|\| '%' AND due_date < \$5 AND status <> 'done'\s+ORDER BY position, created_at\s+LIMIT \$6 OFFSET \$7`).
		WithArgs("p1", "todo", "u2", "docs", now, 20, 40).
		WillReturnRows(sqlmock.NewRows(append(taskCols, "count")).
			AddRow("t1", "p1", nil, "docs", "", "todo", "low", "u2", "u1", now, 2.5, 1, "{a}", nil, now, now, 41))

	items, total, err := repo.List(context.Background(), domain.ListFilter{
		ProjectID: "p1", Status: "todo", AssigneeID: "u2", Query: "docs", Overdue: true, Now: now, Limit: 20, Offset: 40,
	})
	require.NoError(t, err)
	assert.Equal(t, 41, total)
	require.Len(t, items, 1)
	assert.Equal(t, 2.5, *items[0].EstimateHours)
	assert.Equal(t, "u2", *items[0].AssigneeID)
	assert.Nil(t, items[0].MilestoneID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_GetByID(t *testing.T) {
	repo, mock := setupTaskRepo(t)

	_, err := repo.GetByID(context.Background(), "bogus")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	id := uuid.NewString()
	mock.ExpectQuery(`FROM tasks WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(taskCols))
	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTaskRepository_SoftDelete(t *testing.T) {
	repo, mock := setupTaskRepo(t)
	mock.ExpectExec(`UPDATE tasks SET deleted_at = now\(\)`).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.SoftDelete(context.Background(), "t1"), domain.ErrNotFound)
}

func TestTaskRepository_MilestoneProjectID(t *testing.T) {
	repo, mock := setupTaskRepo(t)
	id := uuid.NewString()
	mock.ExpectQuery(`SELECT project_id FROM milestones`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow("p1"))

	projectID, err := repo.MilestoneProjectID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "p1", projectID)
}
