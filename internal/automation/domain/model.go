package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TriggerTaskCreated        = "task_created"
	TriggerTaskStatusChanged  = "task_status_changed"
	TriggerTaskAssigned       = "task_assigned"
	TriggerTaskDueSoon        = "task_due_soon"
	TriggerTaskOverdue        = "task_overdue"
	TriggerMilestoneCompleted = "milestone_completed"
)

const (
	ActionSetStatus       = "set_status"
	ActionSetPriority     = "set_priority"
	ActionAssignUser      = "assign_user"
	ActionAddTag          = "add_tag"
	ActionNotifyAssignee  = "notify_assignee"
	ActionMoveToMilestone = "move_to_milestone"
)

var (
	triggers = []string{TriggerTaskCreated, TriggerTaskStatusChanged, TriggerTaskAssigned,
		TriggerTaskDueSoon, TriggerTaskOverdue, TriggerMilestoneCompleted}
	actions = []string{ActionSetStatus, ActionSetPriority, ActionAssignUser,
		ActionAddTag, ActionNotifyAssignee, ActionMoveToMilestone}
)

type Rule struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	Name         string     `json:"name"`
	Trigger      string     `json:"trigger"`
	TriggerValue string     `json:"trigger_value,omitempty"`
	Action       string     `json:"action"`
	ActionValue  string     `json:"action_value,omitempty"`
	Enabled      bool       `json:"enabled"`
	FireCount    int        `json:"fire_count"`
	LastFiredAt  *time.Time `json:"last_fired_at,omitempty"`
	CreatedBy    string     `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type CreateRuleRequest struct {
	Name         string `json:"name"`
	Trigger      string `json:"trigger"`
	TriggerValue string `json:"trigger_value"`
	Action       string `json:"action"`
	ActionValue  string `json:"action_value"`
	Enabled      *bool  `json:"enabled"`
}

type UpdateRuleRequest struct {
	Name         *string `json:"name"`
	Trigger      *string `json:"trigger"`
	TriggerValue *string `json:"trigger_value"`
	Action       *string `json:"action"`
	ActionValue  *string `json:"action_value"`
	Enabled      *bool   `json:"enabled"`
}

var taskStatuses = []string{"todo", "in_progress", "in_review", "done", "blocked"}
var priorities = []string{"low", "medium", "high", "critical"}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

func ValidTrigger(t string) bool { return oneOf(t, triggers) }
func ValidAction(a string) bool  { return oneOf(a, actions) }

// Validate checks the rule's enums and that its values fit the trigger and action.
func (r *Rule) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.TriggerValue = strings.TrimSpace(r.TriggerValue)
	r.ActionValue = strings.TrimSpace(r.ActionValue)

	if r.Name == "" || len(r.Name) > 200 {
		return ErrInvalidName
	}
	if !ValidTrigger(r.Trigger) {
		return ErrInvalidTrigger
	}
	if !ValidAction(r.Action) {
		return ErrInvalidAction
	}
	if err := validateTriggerValue(r.Trigger, r.TriggerValue); err != nil {
		return err
	}
	return validateActionValue(r.Action, r.ActionValue)
}

func validateTriggerValue(trigger, v string) error {
	if v == "" {
		return nil
	}
	switch trigger {
	case TriggerTaskStatusChanged, TriggerTaskCreated:
		if oneOf(v, taskStatuses) {
			return nil
		}
	case TriggerTaskAssigned, TriggerMilestoneCompleted:
		if uuid.Validate(v) == nil {
			return nil
		}
	}
	return ErrInvalidTriggerValue
}

func validateActionValue(action, v string) error {
	ok := false
	switch action {
	case ActionSetStatus:
		ok = oneOf(v, taskStatuses)
	case ActionSetPriority:
		ok = oneOf(v, priorities)
	case ActionAssignUser, ActionMoveToMilestone:
		ok = uuid.Validate(v) == nil
	case ActionAddTag:
		ok = v != "" && len(v) <= 50
	case ActionNotifyAssignee:
		ok = len(v) <= 1000
	}
	if !ok {
		return ErrInvalidActionValue
	}
	return nil
}
