package http

import (
	"context"

	"github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

type Service interface {
	Create(ctx context.Context, userID, publicID string, req domain.CreateTaskRequest) (*domain.Task, error)
	List(ctx context.Context, userID, publicID string, f domain.ListFilter) ([]domain.Task, int, error)
	Get(ctx context.Context, userID, taskID string) (*domain.Task, error)
	Update(ctx context.Context, userID, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error)
	SetStatus(ctx context.Context, userID, taskID, status string) (*domain.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}
