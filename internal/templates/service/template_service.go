package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	autodomain "github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	msdomain "github.com/taskdeck/taskdeck-backend/internal/milestones/domain"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	taskdomain "github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
	"github.com/taskdeck/taskdeck-backend/internal/templates/domain"
)

type Repository interface {
	ListVisible(ctx context.Context, userID string) ([]domain.Template, error)
	GetByID(ctx context.Context, id string) (*domain.Template, error)
	Create(ctx context.Context, t *domain.Template) error
	UpsertBuiltin(ctx context.Context, t *domain.Template) error
	Delete(ctx context.Context, id string) error
}

// Stores are the repositories instantiation writes through, all bound to
// the same transaction.
type Stores struct {
	Projects   ProjectCreator
	Milestones MilestoneCreator
	Tasks      TaskCreator
	Rules      RuleCreator
}

type ProjectCreator interface {
	Create(ctx context.Context, p *projectdomain.Project) error
}

type MilestoneCreator interface {
	Create(ctx context.Context, m *msdomain.Milestone) error
}

type TaskCreator interface {
	Create(ctx context.Context, t *taskdomain.Task) error
}

type RuleCreator interface {
	Create(ctx context.Context, r *autodomain.Rule) error
}

type Transactor interface {
	InTx(ctx context.Context, fn func(s Stores) error) error
}

// ProjectSource reads an existing project for save-as-template.
type ProjectSource interface {
	Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error)
	Get(ctx context.Context, userID, publicID string) (*projectdomain.Project, error)
	Milestones(ctx context.Context, projectID string) ([]msdomain.Milestone, error)
	Tasks(ctx context.Context, projectID string) ([]taskdomain.Task, error)
	Rules(ctx context.Context, projectID string) ([]autodomain.Rule, error)
}

type TemplateService struct {
	repo    Repository
	tx      Transactor
	source  ProjectSource
	builtin func() ([]domain.Template, error)
	now     func() time.Time
}

// NewTemplateService wires the service. builtin supplies the templates that
// SeedBuiltins upserts.
func NewTemplateService(repo Repository, tx Transactor, source ProjectSource, builtin func() ([]domain.Template, error)) *TemplateService {
	return &TemplateService{repo: repo, tx: tx, source: source, builtin: builtin, now: time.Now}
}

// SeedBuiltins upserts the built-in templates by slug and returns how many were written.
func (s *TemplateService) SeedBuiltins(ctx context.Context) (int, error) {
	templates, err := s.builtin()
	if err != nil {
		return 0, err
	}
	for i := range templates {
		if err := s.repo.UpsertBuiltin(ctx, &templates[i]); err != nil {
			return i, err
		}
	}
	logging.FromContext(ctx).WithField("count", len(templates)).Info("built-in templates seeded")
	return len(templates), nil
}

func (s *TemplateService) List(ctx context.Context, userID string) ([]domain.Template, error) {
	return s.repo.ListVisible(ctx, userID)
}

// Get returns a built-in template or one owned by userID.
func (s *TemplateService) Get(ctx context.Context, userID, id string) (*domain.Template, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Builtin && (t.OwnerID == nil || *t.OwnerID != userID) {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (s *TemplateService) Create(ctx context.Context, userID string, req domain.CreateTemplateRequest) (*domain.Template, error) {
	t := &domain.Template{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		OwnerID:     &userID,
		Definition:  req.Definition,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, userID, id string) error {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if t.Builtin {
		return domain.ErrForbidden
	}
	return s.repo.Delete(ctx, t.ID)
}

// Instantiate creates a project with the template's milestones, tasks and
// rules in one transaction. Due dates are start date plus offset days.
func (s *TemplateService) Instantiate(ctx context.Context, userID, id string, req domain.InstantiateRequest) (*projectdomain.Project, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = t.Name
	}
	if len(name) > 200 {
		return nil, projectdomain.ErrInvalidName
	}
	start := s.now().UTC().Truncate(24 * time.Hour)
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	due := func(days int) *time.Time {
		d := start.AddDate(0, 0, days)
		return &d
	}

	project := &projectdomain.Project{
		OwnerID:     userID,
		Name:        name,
		Description: t.Description,
		Status:      projectdomain.StatusPlanning,
		Priority:    projectdomain.PriorityMedium,
		Tags:        []string{},
		StartDate:   &start,
		TemplateID:  &t.ID,
		Role:        projectdomain.RoleOwner,
	}
	for _, md := range t.Definition.Milestones {
		if d := due(md.OffsetDays); project.DueDate == nil || d.After(*project.DueDate) {
			project.DueDate = d
		}
	}

	err = s.tx.InTx(ctx, func(st Stores) error {
		if err := st.Projects.Create(ctx, project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		milestoneIDs := make(map[string]string, len(t.Definition.Milestones))
		for _, md := range t.Definition.Milestones {
			m := &msdomain.Milestone{
				ProjectID:   project.ID,
				Title:       md.Title,
				Description: md.Description,
				DueDate:     due(md.OffsetDays),
				Status:      msdomain.StatusOpen,
			}
			if err := st.Milestones.Create(ctx, m); err != nil {
				return fmt.Errorf("create milestone %s: %w", md.Key, err)
			}
			milestoneIDs[md.Key] = m.ID
		}

		for _, td := range t.Definition.Tasks {
			task := &taskdomain.Task{
				ProjectID:   project.ID,
				Title:       td.Title,
				Description: td.Description,
				Status:      taskdomain.StatusTodo,
				Priority:    td.Priority,
				ReporterID:  userID,
				Tags:        taskdomain.NormalizeTags(td.Tags),
			}
			if task.Priority == "" {
				task.Priority = taskdomain.PriorityMedium
			}
			if td.OffsetDays != nil {
				task.DueDate = due(*td.OffsetDays)
			}
			if td.Milestone != "" {
				mid := milestoneIDs[td.Milestone]
				task.MilestoneID = &mid
			}
			if err := st.Tasks.Create(ctx, task); err != nil {
				return fmt.Errorf("create task %q: %w", td.Title, err)
			}
		}

		for _, rd := range t.Definition.Rules {
			rule := &autodomain.Rule{
				ProjectID:    project.ID,
				Name:         rd.Name,
				Trigger:      rd.Trigger,
				TriggerValue: rd.TriggerValue,
				Action:       rd.Action,
				ActionValue:  rd.ActionValue,
				Enabled:      true,
				CreatedBy:    userID,
			}
			if rd.MilestoneTrigger() && rd.TriggerValue != "" {
				rule.TriggerValue = milestoneIDs[rd.TriggerValue]
			}
			if rd.MilestoneAction() {
				rule.ActionValue = milestoneIDs[rd.ActionValue]
			}
			if err := st.Rules.Create(ctx, rule); err != nil {
				return fmt.Errorf("create rule %q: %w", rd.Name, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithField("template_id", t.ID).WithField("project_id", project.PublicID).
		Info("project created from template")
	return project, nil
}

// SaveAsTemplate captures a project's milestones, tasks and rules as a custom
// template owned by userID. Offsets are measured from the project's start date,
// or its creation date when it has none. Rules that name a user are not copied.
func (s *TemplateService) SaveAsTemplate(ctx context.Context, userID, publicID string, req domain.SaveAsTemplateRequest) (*domain.Template, error) {
	access, err := s.source.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireWrite(); err != nil {
		return nil, err
	}
	project, err := s.source.Get(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	base := project.CreatedAt
	if project.StartDate != nil {
		base = *project.StartDate
	}

	milestones, err := s.source.Milestones(ctx, access.ProjectID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.source.Tasks(ctx, access.ProjectID)
	if err != nil {
		return nil, err
	}
	rules, err := s.source.Rules(ctx, access.ProjectID)
	if err != nil {
		return nil, err
	}

	var def domain.Definition
	keys := make(map[string]string, len(milestones))
	for i, m := range milestones {
		key := fmt.Sprintf("m%d", i+1)
		keys[m.ID] = key
		offset := 0
		if m.DueDate != nil {
			offset = offsetDays(base, *m.DueDate)
		}
		def.Milestones = append(def.Milestones, domain.MilestoneDef{
			Key: key, Title: m.Title, Description: m.Description, OffsetDays: offset,
		})
	}

	for _, t := range tasks {
		td := domain.TaskDef{Title: t.Title, Description: t.Description, Priority: t.Priority, Tags: t.Tags}
		if t.DueDate != nil {
			d := offsetDays(base, *t.DueDate)
			td.OffsetDays = &d
		}
		if t.MilestoneID != nil {
			td.Milestone = keys[*t.MilestoneID]
		}
		def.Tasks = append(def.Tasks, td)
	}

	for _, r := range rules {
		if r.Action == autodomain.ActionAssignUser || (r.Trigger == autodomain.TriggerTaskAssigned && r.TriggerValue != "") {
			continue
		}
		rd := domain.RuleDef{Name: r.Name, Trigger: r.Trigger, TriggerValue: r.TriggerValue, Action: r.Action, ActionValue: r.ActionValue}
		if rd.MilestoneTrigger() && rd.TriggerValue != "" {
			key, ok := keys[rd.TriggerValue]
			if !ok {
				continue
			}
			rd.TriggerValue = key
		}
		if rd.MilestoneAction() {
			key, ok := keys[rd.ActionValue]
			if !ok {
				continue
			}
			rd.ActionValue = key
		}
		def.Rules = append(def.Rules, rd)
	}

	name := req.Name
	if strings.TrimSpace(name) == "" {
		name = project.Name
	}
	description := req.Description
	if strings.TrimSpace(description) == "" {
		description = project.Description
	}
	return s.Create(ctx, userID, domain.CreateTemplateRequest{
		Name:        name,
		Description: description,
		Category:    req.Category,
		Definition:  def,
	})
}

// offsetDays is the whole number of days from base to t, never negative.
func offsetDays(base, t time.Time) int {
	d := int(t.Sub(base).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// IsValidation reports whether err is a template validation failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidName, domain.ErrTooLarge, domain.ErrInvalidMilestone, domain.ErrInvalidMilestoneKey,
		domain.ErrUnknownMilestoneKey, domain.ErrInvalidTask,
		autodomain.ErrInvalidName, autodomain.ErrInvalidTrigger, autodomain.ErrInvalidAction,
		autodomain.ErrInvalidTriggerValue, autodomain.ErrInvalidActionValue,
		projectdomain.ErrInvalidName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
