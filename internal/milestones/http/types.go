package http

import (
	"context"

	"github.com/taskdeck/taskdeck-backend/internal/milestones/domain"
)

type Service interface {
	Create(ctx context.Context, userID, publicID string, req domain.CreateMilestoneRequest) (*domain.Milestone, error)
	List(ctx context.Context, userID, publicID string) ([]domain.Milestone, error)
	Get(ctx context.Context, userID, id string) (*domain.Milestone, error)
	Update(ctx context.Context, userID, id string, req domain.UpdateMilestoneRequest) (*domain.Milestone, error)
	Delete(ctx context.Context, userID, id string) error
}

type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}
