package domain

import (
	"strings"
	"time"

	autodomain "github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	taskdomain "github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

type Template struct {
	ID          string     `json:"id" yaml:"-"`
	Slug        string     `json:"slug,omitempty" yaml:"slug"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Category    string     `json:"category" yaml:"category"`
	Builtin     bool       `json:"builtin" yaml:"-"`
	OwnerID     *string    `json:"owner_id,omitempty" yaml:"-"`
	Definition  Definition `json:"definition" yaml:"definition"`
	CreatedAt   time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"-"`
}

// Definition is the content a template expands into. Tasks and rules refer to
// milestones by Key.
type Definition struct {
	Milestones []MilestoneDef `json:"milestones" yaml:"milestones"`
	Tasks      []TaskDef      `json:"tasks" yaml:"tasks"`
	Rules      []RuleDef      `json:"rules" yaml:"rules"`
}

type MilestoneDef struct {
	Key         string `json:"key" yaml:"key"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description"`
	OffsetDays  int    `json:"offset_days" yaml:"offset_days"`
}

type TaskDef struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Priority    string   `json:"priority,omitempty" yaml:"priority"`
	Milestone   string   `json:"milestone,omitempty" yaml:"milestone"`
	OffsetDays  *int     `json:"offset_days,omitempty" yaml:"offset_days"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
}

// RuleDef values for move_to_milestone and milestone_completed name a
// milestone key instead of an id.
type RuleDef struct {
	Name         string `json:"name" yaml:"name"`
	Trigger      string `json:"trigger" yaml:"trigger"`
	TriggerValue string `json:"trigger_value,omitempty" yaml:"trigger_value"`
	Action       string `json:"action" yaml:"action"`
	ActionValue  string `json:"action_value,omitempty" yaml:"action_value"`
}

type CreateTemplateRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Definition  Definition `json:"definition"`
}

type SaveAsTemplateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type InstantiateRequest struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date"`
}

const DefaultCategory = "general"

const (
	maxMilestones = 100
	maxTasks      = 1000
	maxRules      = 50
)

// Validate normalises t and checks its definition.
func (t *Template) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	if t.Name == "" || len(t.Name) > 200 {
		return ErrInvalidName
	}
	return t.Definition.Validate()
}

func (d *Definition) Validate() error {
	if len(d.Milestones) > maxMilestones || len(d.Tasks) > maxTasks || len(d.Rules) > maxRules {
		return ErrTooLarge
	}

	keys := make(map[string]bool, len(d.Milestones))
	for i := range d.Milestones {
		m := &d.Milestones[i]
		m.Key = strings.TrimSpace(m.Key)
		m.Title = strings.TrimSpace(m.Title)
		if m.Key == "" || keys[m.Key] {
			return ErrInvalidMilestoneKey
		}
		if m.Title == "" || m.OffsetDays < 0 {
			return ErrInvalidMilestone
		}
		keys[m.Key] = true
	}

	for i := range d.Tasks {
		t := &d.Tasks[i]
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" || len(t.Title) > 500 {
			return ErrInvalidTask
		}
		if t.Priority != "" && !taskdomain.ValidPriority(t.Priority) {
			return ErrInvalidTask
		}
		if t.OffsetDays != nil && *t.OffsetDays < 0 {
			return ErrInvalidTask
		}
		if t.Milestone != "" && !keys[t.Milestone] {
			return ErrUnknownMilestoneKey
		}
		t.Tags = taskdomain.NormalizeTags(t.Tags)
	}

	for i := range d.Rules {
		r := &d.Rules[i]
		rule := autodomain.Rule{
			Name:         r.Name,
			Trigger:      r.Trigger,
			TriggerValue: r.TriggerValue,
			Action:       r.Action,
			ActionValue:  r.ActionValue,
		}
		if r.MilestoneTrigger() {
			if r.TriggerValue != "" && !keys[r.TriggerValue] {
				return ErrUnknownMilestoneKey
			}
			rule.TriggerValue = ""
		}
		if r.MilestoneAction() {
			if !keys[r.ActionValue] {
				return ErrUnknownMilestoneKey
			}
			rule.ActionValue = placeholderID
		}
		if err := rule.Validate(); err != nil {
			return err
		}
		r.Name = rule.Name
	}
	return nil
}

const placeholderID = "00000000-0000-4000-8000-000000000000"

func (r RuleDef) MilestoneTrigger() bool {
	return r.Trigger == autodomain.TriggerMilestoneCompleted
}

func (r RuleDef) MilestoneAction() bool {
	return r.Action == autodomain.ActionMoveToMilestone
}
