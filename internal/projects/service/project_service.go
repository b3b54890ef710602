package service

import (
	"context"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck-backend/internal/events"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	"github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

// Repository is the persistence the project service needs.
type Repository interface {
	Create(ctx context.Context, p *domain.Project) error
	GetForUser(ctx context.Context, userID, publicID string) (*domain.Project, error)
	Access(ctx context.Context, userID, publicID string) (*domain.Access, error)
	AccessByID(ctx context.Context, userID, projectID string) (*domain.Access, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Project, int, error)
	Update(ctx context.Context, p *domain.Project) error
	SoftDelete(ctx context.Context, id string) (bool, error)
	ListMembers(ctx context.Context, projectID string) ([]domain.Member, error)
	FindUserByEmail(ctx context.Context, email string) (string, string, error)
	AddMember(ctx context.Context, projectID, userID, role string) (time.Time, error)
	UpdateMemberRole(ctx context.Context, projectID, userID, role string) error
	RemoveMember(ctx context.Context, projectID, userID string) error
}

// ProjectService handles project-related business logic
type ProjectService struct {
	repo   Repository
	events events.Publisher
}

// NewProjectService creates a new project service
func NewProjectService(repo Repository, publisher events.Publisher) *ProjectService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &ProjectService{repo: repo, events: publisher}
}

// Create creates a project owned by userID.
func (s *ProjectService) Create(ctx context.Context, userID string, req domain.CreateProjectRequest) (*domain.Project, error) {
	p := &domain.Project{
		OwnerID:     userID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Status:      req.Status,
		Priority:    req.Priority,
		Color:       strings.TrimSpace(req.Color),
		Tags:        domain.NormalizeTags(req.Tags),
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		TemplateID:  req.TemplateID,
	}
	if p.Status == "" {
		p.Status = domain.StatusPlanning
	}
	if p.Priority == "" {
		p.Priority = domain.PriorityMedium
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	p.Role = domain.RoleOwner

	s.events.Publish(ctx, events.Event{Type: events.ProjectCreated, ProjectID: p.ID, ActorID: userID})
	logging.FromContext(ctx).WithField("project", p.PublicID).Info("project created")
	return p, nil
}

func (s *ProjectService) List(ctx context.Context, f domain.ListFilter) ([]domain.Project, int, error) {
	if f.Status != "" && !domain.ValidStatus(f.Status) {
		return nil, 0, domain.ErrInvalidStatus
	}
	return s.repo.List(ctx, f)
}

func (s *ProjectService) Get(ctx context.Context, userID, publicID string) (*domain.Project, error) {
	return s.repo.GetForUser(ctx, userID, publicID)
}

// Update applies a partial update. Editors and owners may update.
func (s *ProjectService) Update(ctx context.Context, userID, publicID string, req domain.UpdateProjectRequest) (*domain.Project, error) {
	p, err := s.repo.GetForUser(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	access := domain.Access{ProjectID: p.ID, PublicID: p.PublicID, UserID: userID, Role: p.Role}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		p.Status = *req.Status
	}
	if req.Priority != nil {
		p.Priority = *req.Priority
	}
	if req.Color != nil {
		p.Color = strings.TrimSpace(*req.Color)
	}
	if req.Tags != nil {
		p.Tags = domain.NormalizeTags(*req.Tags)
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.DueDate != nil {
		p.DueDate = req.DueDate
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.Event{Type: events.ProjectUpdated, ProjectID: p.ID, ActorID: userID, Value: p.Status})
	return p, nil
}

// Delete soft-deletes a project. Only the owner may delete.
func (s *ProjectService) Delete(ctx context.Context, userID, publicID string) error {
	access, err := s.repo.Access(ctx, userID, publicID)
	if err != nil {
		return err
	}
	if err := access.RequireOwner(); err != nil {
		return err
	}

	ok, err := s.repo.SoftDelete(ctx, access.ProjectID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}

	s.events.Publish(ctx, events.Event{Type: events.ProjectDeleted, ProjectID: access.ProjectID, ActorID: userID})
	return nil
}

// Resolve returns the caller's access to a project addressed by public id.
func (s *ProjectService) Resolve(ctx context.Context, userID, publicID string) (*domain.Access, error) {
	return s.repo.Access(ctx, userID, publicID)
}

// ResolveByID returns the caller's access to a project addressed by internal id.
func (s *ProjectService) ResolveByID(ctx context.Context, userID, projectID string) (*domain.Access, error) {
	return s.repo.AccessByID(ctx, userID, projectID)
}

func validate(p *domain.Project) error {
	if p.Name == "" || len(p.Name) > 200 {
		return domain.ErrInvalidName
	}
	if !domain.ValidStatus(p.Status) {
		return domain.ErrInvalidStatus
	}
	if !domain.ValidPriority(p.Priority) {
		return domain.ErrInvalidPriority
	}
	if p.StartDate != nil && p.DueDate != nil && p.DueDate.Before(*p.StartDate) {
		return domain.ErrInvalidDates
	}
	return nil
}
