package http

import (
	"context"

	"github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

// Service is the project behaviour the handlers need.
type Service interface {
	Create(ctx context.Context, userID string, req domain.CreateProjectRequest) (*domain.Project, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Project, int, error)
	Get(ctx context.Context, userID, publicID string) (*domain.Project, error)
	Update(ctx context.Context, userID, publicID string, req domain.UpdateProjectRequest) (*domain.Project, error)
	Delete(ctx context.Context, userID, publicID string) error
	ListMembers(ctx context.Context, userID, publicID string) ([]domain.Member, error)
	AddMember(ctx context.Context, userID, publicID, email, role string) (*domain.Member, error)
	UpdateMemberRole(ctx context.Context, userID, publicID, memberID, role string) error
	RemoveMember(ctx context.Context, userID, publicID, memberID string) error
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}
