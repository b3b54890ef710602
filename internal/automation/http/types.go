package http

import (
	"context"

	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
)

type Service interface {
	Create(ctx context.Context, userID, publicID string, req domain.CreateRuleRequest) (*domain.Rule, error)
	List(ctx context.Context, userID, publicID string) ([]domain.Rule, error)
	Get(ctx context.Context, userID, id string) (*domain.Rule, error)
	Update(ctx context.Context, userID, id string, req domain.UpdateRuleRequest) (*domain.Rule, error)
	Delete(ctx context.Context, userID, id string) error
}

type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}
