// Package engine evaluates automation rules against task and milestone events
// and runs the due-date sweep.
package engine

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/sirupsen/logrus"

	authdomain "github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	"github.com/taskdeck/taskdeck-backend/internal/events"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	"github.com/taskdeck/taskdeck-backend/internal/mail"
	taskdomain "github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

type RuleStore interface {
	ListEnabled(ctx context.Context, projectID, trigger string) ([]domain.Rule, error)
	RecordFire(ctx context.Context, id string, at time.Time) error
}

// Tasks is the task service surface the engine acts through. Changes made
// with ApplyAutomated are published as automated events.
type Tasks interface {
	GetUnchecked(ctx context.Context, taskID string) (*taskdomain.Task, error)
	ApplyAutomated(ctx context.Context, taskID, actorID string, mutate func(t *taskdomain.Task) error) (*taskdomain.Task, error)
	OpenInMilestone(ctx context.Context, projectID, milestoneID string) ([]taskdomain.Task, error)
	OpenDue(ctx context.Context, from, to time.Time) ([]taskdomain.Task, error)
}

type Users interface {
	GetByID(ctx context.Context, id string) (*authdomain.User, error)
}

// errUnchanged marks an action that had nothing to do; it does not count as a fire.
var errUnchanged = errors.New("rule action changed nothing")

type Engine struct {
	rules       RuleStore
	tasks       Tasks
	users       Users
	mailer      mail.Mailer
	frontendURL string
	now         func() time.Time
}

func New(rules RuleStore, tasks Tasks, users Users, mailer mail.Mailer, frontendURL string) *Engine {
	return &Engine{
		rules:       rules,
		tasks:       tasks,
		users:       users,
		mailer:      mailer,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

var eventTriggers = map[events.Type]string{
	events.TaskCreated:        domain.TriggerTaskCreated,
	events.TaskStatusChanged:  domain.TriggerTaskStatusChanged,
	events.TaskAssigned:       domain.TriggerTaskAssigned,
	events.MilestoneCompleted: domain.TriggerMilestoneCompleted,
}

// Handle is subscribed to the event bus. Automated events are ignored so rules
// never trigger each other.
func (e *Engine) Handle(ctx context.Context, ev events.Event) error {
	if ev.Automated {
		return nil
	}
	trigger, ok := eventTriggers[ev.Type]
	if !ok {
		return nil
	}

	rules, err := e.rules.ListEnabled(ctx, ev.ProjectID, trigger)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	targets, err := e.targets(ctx, trigger, ev)
	if err != nil {
		return err
	}

	var errs []error
	for _, rule := range rules {
		if !matches(rule, ev) {
			continue
		}
		for _, taskID := range targets {
			if _, err := e.Fire(ctx, rule, taskID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) targets(ctx context.Context, trigger string, ev events.Event) ([]string, error) {
	if trigger == domain.TriggerMilestoneCompleted {
		tasks, err := e.tasks.OpenInMilestone(ctx, ev.ProjectID, ev.MilestoneID)
		if err != nil {
			return nil, fmt.Errorf("load milestone tasks: %w", err)
		}
		ids := make([]string, len(tasks))
		for i, t := range tasks {
			ids[i] = t.ID
		}
		return ids, nil
	}
	if ev.TaskID == "" {
		return nil, nil
	}
	return []string{ev.TaskID}, nil
}

// matches compares the rule's optional trigger value with the event: the
// milestone id for milestone_completed, the event value otherwise.
func matches(rule domain.Rule, ev events.Event) bool {
	if rule.TriggerValue == "" {
		return true
	}
	if rule.Trigger == domain.TriggerMilestoneCompleted {
		return rule.TriggerValue == ev.MilestoneID
	}
	return rule.TriggerValue == ev.Value
}

// Fire applies the rule's action to a task and records the fire. It reports
// false for actions with nothing to change, which are not recorded.
func (e *Engine) Fire(ctx context.Context, rule domain.Rule, taskID string) (bool, error) {
	err := e.apply(ctx, rule, taskID)
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rule %s on task %s: %w", rule.ID, taskID, err)
	}

	if err := e.rules.RecordFire(ctx, rule.ID, e.now()); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("rule_id", rule.ID).Warn("record rule fire")
	}
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"rule_id": rule.ID,
		"task_id": taskID,
		"action":  rule.Action,
	}).Info("automation rule fired")
	return true, nil
}

func (e *Engine) apply(ctx context.Context, rule domain.Rule, taskID string) error {
	if rule.Action == domain.ActionNotifyAssignee {
		return e.notify(ctx, rule, taskID)
	}

	v := rule.ActionValue
	_, err := e.tasks.ApplyAutomated(ctx, taskID, rule.CreatedBy, func(t *taskdomain.Task) error {
		switch rule.Action {
		case domain.ActionSetStatus:
			if t.Status == v {
				return errUnchanged
			}
			t.Status = v
		case domain.ActionSetPriority:
			if t.Priority == v {
				return errUnchanged
			}
			t.Priority = v
		case domain.ActionAssignUser:
			if t.AssigneeID != nil && *t.AssigneeID == v {
				return errUnchanged
			}
			t.AssigneeID = &v
		case domain.ActionAddTag:
			for _, tag := range t.Tags {
				if tag == v {
					return errUnchanged
				}
			}
			t.Tags = append(t.Tags, v)
		case domain.ActionMoveToMilestone:
			if t.MilestoneID != nil && *t.MilestoneID == v {
				return errUnchanged
			}
			t.MilestoneID = &v
		default:
			return fmt.Errorf("unsupported action %q", rule.Action)
		}
		return nil
	})
	return err
}

func (e *Engine) notify(ctx context.Context, rule domain.Rule, taskID string) error {
	t, err := e.tasks.GetUnchecked(ctx, taskID)
	if err != nil {
		return err
	}
	if t.AssigneeID == nil {
		return errUnchanged
	}
	user, err := e.users.GetByID(ctx, *t.AssigneeID)
	if err != nil {
		return fmt.Errorf("load assignee: %w", err)
	}

	body := fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>Task: <a href=\"%s\">%s</a> (%s)</p>",
		html.EscapeString(user.DisplayName),
		html.EscapeString(notifyText(rule, t)),
		html.EscapeString(e.frontendURL+"/tasks/"+t.ID),
		html.EscapeString(t.Title),
		html.EscapeString(t.Status),
	)
	return e.mailer.Send(ctx, mail.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("[%s] %s", rule.Name, t.Title),
		HTML:    body,
	})
}

func notifyText(rule domain.Rule, t *taskdomain.Task) string {
	if rule.ActionValue != "" {
		return rule.ActionValue
	}
	switch rule.Trigger {
	case domain.TriggerTaskDueSoon:
		return "A task assigned to you is due soon."
	case domain.TriggerTaskOverdue:
		return "A task assigned to you is overdue."
	case domain.TriggerTaskAssigned:
		return "A task was assigned to you."
	default:
		return fmt.Sprintf("Automation rule %q ran on a task assigned to you.", rule.Name)
	}
}
