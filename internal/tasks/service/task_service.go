package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck-backend/internal/events"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

// Repository is the persistence the task service needs.
type Repository interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Task, int, error)
	ListOpenDue(ctx context.Context, from, to time.Time) ([]domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	SoftDelete(ctx context.Context, id string) error
	MilestoneProjectID(ctx context.Context, milestoneID string) (string, error)
}

const maxMilestoneTasks = 1000

// ProjectAccess resolves a user's membership in a project.
type ProjectAccess interface {
	Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error)
	ResolveByID(ctx context.Context, userID, projectID string) (*projectdomain.Access, error)
}

type TaskService struct {
	repo     Repository
	projects ProjectAccess
	events   events.Publisher
	now      func() time.Time
}

func NewTaskService(repo Repository, projects ProjectAccess, publisher events.Publisher) *TaskService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &TaskService{repo: repo, projects: projects, events: publisher, now: time.Now}
}

// Create adds a task to the project identified by publicID. Editors and owners only.
func (s *TaskService) Create(ctx context.Context, userID, publicID string, req domain.CreateTaskRequest) (*domain.Task, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}
	return s.CreateInProject(ctx, access.ProjectID, userID, req, false)
}

// CreateInProject creates a task without an access check. Callers have already
// authorised the project.
func (s *TaskService) CreateInProject(ctx context.Context, projectID, reporterID string, req domain.CreateTaskRequest, automated bool) (*domain.Task, error) {
	t := &domain.Task{
		ProjectID:     projectID,
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Status:        req.Status,
		Priority:      req.Priority,
		MilestoneID:   blankToNil(req.MilestoneID),
		AssigneeID:    blankToNil(req.AssigneeID),
		ReporterID:    reporterID,
		DueDate:       req.DueDate,
		EstimateHours: req.EstimateHours,
		Tags:          domain.NormalizeTags(req.Tags),
	}
	if t.Status == "" {
		t.Status = domain.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Status == domain.StatusDone {
		now := s.now()
		t.CompletedAt = &now
	}
	if err := s.validate(ctx, t, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TaskCreated, t, reporterID, t.Status, automated)
	if t.AssigneeID != nil {
		s.publish(ctx, events.TaskAssigned, t, reporterID, *t.AssigneeID, automated)
	}
	return t, nil
}

func (s *TaskService) List(ctx context.Context, userID, publicID string, f domain.ListFilter) ([]domain.Task, int, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, 0, err
	}
	if f.Status != "" && !domain.ValidStatus(f.Status) {
		return nil, 0, domain.ErrInvalidStatus
	}
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	f.ProjectID = access.ProjectID
	f.Now = s.now()
	return s.repo.List(ctx, f)
}

func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	t, _, err := s.load(ctx, userID, taskID)
	return t, err
}

// Update applies a partial update on behalf of userID.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, req domain.UpdateTaskRequest) (*domain.Task, error) {
	t, access, err := s.load(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}
	return s.modify(ctx, t, userID, false, func(t *domain.Task) error {
		applyUpdate(t, req)
		return nil
	})
}

// SetStatus moves a task to status on behalf of userID.
func (s *TaskService) SetStatus(ctx context.Context, userID, taskID, status string) (*domain.Task, error) {
	return s.Update(ctx, userID, taskID, domain.UpdateTaskRequest{Status: &status})
}

// ApplyAutomated changes a task without an access check. Events it emits are
// flagged as automated.
func (s *TaskService) ApplyAutomated(ctx context.Context, taskID, actorID string, mutate func(t *domain.Task) error) (*domain.Task, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.modify(ctx, t, actorID, true, mutate)
}

// GetUnchecked loads a task without an access check.
func (s *TaskService) GetUnchecked(ctx context.Context, taskID string) (*domain.Task, error) {
	return s.repo.GetByID(ctx, taskID)
}

// OpenDue lists unfinished tasks due in (from, to] across all projects.
func (s *TaskService) OpenDue(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	return s.repo.ListOpenDue(ctx, from, to)
}

// OpenInMilestone lists the milestone's unfinished tasks without an access check.
func (s *TaskService) OpenInMilestone(ctx context.Context, projectID, milestoneID string) ([]domain.Task, error) {
	items, _, err := s.repo.List(ctx, domain.ListFilter{ProjectID: projectID, MilestoneID: milestoneID, Limit: maxMilestoneTasks})
	if err != nil {
		return nil, err
	}
	open := items[:0]
	for _, t := range items {
		if t.Status != domain.StatusDone {
			open = append(open, t)
		}
	}
	return open, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	t, access, err := s.load(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if err := access.RequireWrite(); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, t.ID); err != nil {
		return err
	}
	s.publish(ctx, events.TaskDeleted, t, userID, "", false)
	return nil
}

// load fetches a task the user can see. Tasks in projects the user is not a
// member of are reported as not found.
func (s *TaskService) load(ctx context.Context, userID, taskID string) (*domain.Task, *projectdomain.Access, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	access, err := s.projects.ResolveByID(ctx, userID, t.ProjectID)
	if err != nil {
		if errors.Is(err, projectdomain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, err
	}
	return t, access, nil
}

func (s *TaskService) modify(ctx context.Context, t *domain.Task, actorID string, automated bool, mutate func(t *domain.Task) error) (*domain.Task, error) {
	before := t.Clone()
	if err := mutate(t); err != nil {
		return nil, err
	}
	t.Tags = domain.NormalizeTags(t.Tags)

	if err := s.validate(ctx, t, before); err != nil {
		return nil, err
	}

	statusChanged := t.Status != before.Status
	if statusChanged {
		switch {
		case t.Status == domain.StatusDone:
			now := s.now()
			t.CompletedAt = &now
		case before.Status == domain.StatusDone:
			t.CompletedAt = nil
		}
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	published := false
	if statusChanged {
		s.publish(ctx, events.TaskStatusChanged, t, actorID, t.Status, automated)
		published = true
	}
	if t.AssigneeID != nil && !sameString(t.AssigneeID, before.AssigneeID) {
		s.publish(ctx, events.TaskAssigned, t, actorID, *t.AssigneeID, automated)
		published = true
	}
	if !published {
		s.publish(ctx, events.TaskUpdated, t, actorID, "", automated)
	}
	return t, nil
}

// validate checks t; before is nil for new tasks. Membership and milestone
// checks only run for values that changed.
func (s *TaskService) validate(ctx context.Context, t, before *domain.Task) error {
	if t.Title == "" || len(t.Title) > 500 {
		return domain.ErrInvalidTitle
	}
	if !domain.ValidStatus(t.Status) {
		return domain.ErrInvalidStatus
	}
	if !domain.ValidPriority(t.Priority) {
		return domain.ErrInvalidPriority
	}
	if t.EstimateHours != nil && *t.EstimateHours < 0 {
		return domain.ErrInvalidEstimate
	}

	if t.AssigneeID != nil && (before == nil || !sameString(t.AssigneeID, before.AssigneeID)) {
		if _, err := s.projects.ResolveByID(ctx, *t.AssigneeID, t.ProjectID); err != nil {
			if errors.Is(err, projectdomain.ErrNotFound) {
				return domain.ErrAssigneeNotMember
			}
			return err
		}
	}
	if t.MilestoneID != nil && (before == nil || !sameString(t.MilestoneID, before.MilestoneID)) {
		projectID, err := s.repo.MilestoneProjectID(ctx, *t.MilestoneID)
		if err != nil {
			return err
		}
		if projectID != t.ProjectID {
			return domain.ErrMilestoneMismatch
		}
	}
	return nil
}

func (s *TaskService) publish(ctx context.Context, typ events.Type, t *domain.Task, actorID, value string, automated bool) {
	e := events.Event{
		Type:      typ,
		ProjectID: t.ProjectID,
		TaskID:    t.ID,
		ActorID:   actorID,
		Value:     value,
		Automated: automated,
	}
	if t.MilestoneID != nil {
		e.MilestoneID = *t.MilestoneID
	}
	s.events.Publish(ctx, e)
}

func applyUpdate(t *domain.Task, req domain.UpdateTaskRequest) {
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	if req.MilestoneID != nil {
		t.MilestoneID = blankToNil(req.MilestoneID)
	}
	if req.AssigneeID != nil {
		t.AssigneeID = blankToNil(req.AssigneeID)
	}
	if req.ClearDueDate {
		t.DueDate = nil
	} else if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.EstimateHours != nil {
		t.EstimateHours = req.EstimateHours
	}
	if req.Position != nil {
		t.Position = *req.Position
	}
	if req.Tags != nil {
		t.Tags = *req.Tags
	}
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
