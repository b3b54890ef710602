package repository

import (
	"context"
	"database/sql"

	autorepo "github.com/taskdeck/taskdeck-backend/internal/automation/repository"
	msrepo "github.com/taskdeck/taskdeck-backend/internal/milestones/repository"
	projectrepo "github.com/taskdeck/taskdeck-backend/internal/projects/repository"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
	taskrepo "github.com/taskdeck/taskdeck-backend/internal/tasks/repository"
	"github.com/taskdeck/taskdeck-backend/internal/templates/service"
)

// Transactor runs template instantiation against repositories bound to one transaction.
type Transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(ctx context.Context, fn func(s service.Stores) error) error {
	return postgres.WithTx(ctx, t.db, func(tx *sql.Tx) error {
		return fn(service.Stores{
			Projects:   projectrepo.NewProjectRepository(tx),
			Milestones: msrepo.NewMilestoneRepository(tx),
			Tasks:      taskrepo.NewTaskRepository(tx),
			Rules:      autorepo.NewRuleRepository(tx),
		})
	})
}
