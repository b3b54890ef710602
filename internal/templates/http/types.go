package http

import (
	"context"

	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/templates/domain"
)

type Service interface {
	List(ctx context.Context, userID string) ([]domain.Template, error)
	Get(ctx context.Context, userID, id string) (*domain.Template, error)
	Create(ctx context.Context, userID string, req domain.CreateTemplateRequest) (*domain.Template, error)
	Delete(ctx context.Context, userID, id string) error
	Instantiate(ctx context.Context, userID, id string, req domain.InstantiateRequest) (*projectdomain.Project, error)
	SaveAsTemplate(ctx context.Context, userID, publicID string, req domain.SaveAsTemplateRequest) (*domain.Template, error)
}

type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}
