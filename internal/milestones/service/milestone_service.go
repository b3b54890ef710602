package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck-backend/internal/events"
	"github.com/taskdeck/taskdeck-backend/internal/milestones/domain"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

type Repository interface {
	Create(ctx context.Context, m *domain.Milestone) error
	GetByID(ctx context.Context, id string) (*domain.Milestone, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Milestone, error)
	Update(ctx context.Context, m *domain.Milestone) error
	Delete(ctx context.Context, id string) error
}

// ProjectAccess resolves a user's membership in a project.
type ProjectAccess interface {
	Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error)
	ResolveByID(ctx context.Context, userID, projectID string) (*projectdomain.Access, error)
}

type MilestoneService struct {
	repo     Repository
	projects ProjectAccess
	events   events.Publisher
	now      func() time.Time
}

func NewMilestoneService(repo Repository, projects ProjectAccess, publisher events.Publisher) *MilestoneService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &MilestoneService{repo: repo, projects: projects, events: publisher, now: time.Now}
}

func (s *MilestoneService) Create(ctx context.Context, userID, publicID string, req domain.CreateMilestoneRequest) (*domain.Milestone, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}

	m := &domain.Milestone{
		ProjectID:   access.ProjectID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		DueDate:     req.DueDate,
		Status:      domain.StatusOpen,
	}
	if err := validate(m); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.publish(ctx, events.MilestoneCreated, m, userID)
	return m, nil
}

func (s *MilestoneService) List(ctx context.Context, userID, publicID string) ([]domain.Milestone, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, access.ProjectID)
}

func (s *MilestoneService) Get(ctx context.Context, userID, id string) (*domain.Milestone, error) {
	m, _, err := s.load(ctx, userID, id)
	return m, err
}

// Update applies a partial update. Moving to completed stamps CompletedAt and
// emits milestone.completed; reopening clears it.
func (s *MilestoneService) Update(ctx context.Context, userID, id string, req domain.UpdateMilestoneRequest) (*domain.Milestone, error) {
	m, access, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}

	before := m.Status
	if req.Title != nil {
		m.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		m.Description = strings.TrimSpace(*req.Description)
	}
	if req.ClearDueDate {
		m.DueDate = nil
	} else if req.DueDate != nil {
		m.DueDate = req.DueDate
	}
	if req.Status != nil {
		m.Status = *req.Status
	}
	if err := validate(m); err != nil {
		return nil, err
	}

	completed := false
	if m.Status != before {
		if m.Status == domain.StatusCompleted {
			now := s.now()
			m.CompletedAt = &now
			completed = true
		} else {
			m.CompletedAt = nil
		}
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}

	if completed {
		s.publish(ctx, events.MilestoneCompleted, m, userID)
	} else {
		s.publish(ctx, events.MilestoneUpdated, m, userID)
	}
	return m, nil
}

func (s *MilestoneService) Delete(ctx context.Context, userID, id string) error {
	m, access, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := access.RequireWrite(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, m.ID); err != nil {
		return err
	}
	s.publish(ctx, events.MilestoneDeleted, m, userID)
	return nil
}

func (s *MilestoneService) load(ctx context.Context, userID, id string) (*domain.Milestone, *projectdomain.Access, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	access, err := s.projects.ResolveByID(ctx, userID, m.ProjectID)
	if err != nil {
		if errors.Is(err, projectdomain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	return m, access, nil
}

func (s *MilestoneService) publish(ctx context.Context, typ events.Type, m *domain.Milestone, actorID string) {
	s.events.Publish(ctx, events.Event{
		Type:        typ,
		ProjectID:   m.ProjectID,
		MilestoneID: m.ID,
		ActorID:     actorID,
		Value:       m.Status,
	})
}

func validate(m *domain.Milestone) error {
	if m.Title == "" || len(m.Title) > 300 {
		return domain.ErrInvalidTitle
	}
	if !domain.ValidStatus(m.Status) {
		return domain.ErrInvalidStatus
	}
	return nil
}
