package service

import (
	"context"
	"errors"

	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

type Repository interface {
	Create(ctx context.Context, r *domain.Rule) error
	GetByID(ctx context.Context, id string) (*domain.Rule, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Rule, error)
	Update(ctx context.Context, r *domain.Rule) error
	Delete(ctx context.Context, id string) error
}

type ProjectAccess interface {
	Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error)
	ResolveByID(ctx context.Context, userID, projectID string) (*projectdomain.Access, error)
}

// RuleService manages automation rules. Viewers can read them; editors and
// owners can change them.
type RuleService struct {
	repo     Repository
	projects ProjectAccess
}

func NewRuleService(repo Repository, projects ProjectAccess) *RuleService {
	return &RuleService{repo: repo, projects: projects}
}

func (s *RuleService) Create(ctx context.Context, userID, publicID string, req domain.CreateRuleRequest) (*domain.Rule, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}

	rule := &domain.Rule{
		ProjectID:    access.ProjectID,
		Name:         req.Name,
		Trigger:      req.Trigger,
		TriggerValue: req.TriggerValue,
		Action:       req.Action,
		ActionValue:  req.ActionValue,
		Enabled:      req.Enabled == nil || *req.Enabled,
		CreatedBy:    userID,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) List(ctx context.Context, userID, publicID string) ([]domain.Rule, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, access.ProjectID)
}

func (s *RuleService) Get(ctx context.Context, userID, id string) (*domain.Rule, error) {
	rule, _, err := s.load(ctx, userID, id)
	return rule, err
}

func (s *RuleService) Update(ctx context.Context, userID, id string, req domain.UpdateRuleRequest) (*domain.Rule, error) {
	rule, access, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Trigger != nil {
		rule.Trigger = *req.Trigger
	}
	if req.TriggerValue != nil {
		rule.TriggerValue = *req.TriggerValue
	}
	if req.Action != nil {
		rule.Action = *req.Action
	}
	if req.ActionValue != nil {
		rule.ActionValue = *req.ActionValue
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RuleService) Delete(ctx context.Context, userID, id string) error {
	rule, access, err := s.load(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := access.RequireWrite(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, rule.ID)
}

func (s *RuleService) load(ctx context.Context, userID, id string) (*domain.Rule, *projectdomain.Access, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	access, err := s.projects.ResolveByID(ctx, userID, rule.ProjectID)
	if err != nil {
		if errors.Is(err, projectdomain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	return rule, access, nil
}
