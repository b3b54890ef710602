package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusInReview   = "in_review"
	StatusDone       = "done"
	StatusBlocked    = "blocked"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

type Task struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	MilestoneID   *string    `json:"milestone_id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	AssigneeID    *string    `json:"assignee_id,omitempty"`
	ReporterID    string     `json:"reporter_id"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	EstimateHours *float64   `json:"estimate_hours,omitempty"`
	Position      int        `json:"position"`
	Tags          []string   `json:"tags"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so a task can be compared before and after a change.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Tags = append([]string(nil), t.Tags...)
	return &cp
}

// IsOverdue reports whether an open task is past its due date at now.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != StatusDone && t.DueDate != nil && t.DueDate.Before(now)
}

type CreateTaskRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	MilestoneID   *string    `json:"milestone_id"`
	AssigneeID    *string    `json:"assignee_id"`
	DueDate       *time.Time `json:"due_date"`
	EstimateHours *float64   `json:"estimate_hours"`
	Tags          []string   `json:"tags"`
}

// UpdateTaskRequest is a partial update. An empty MilestoneID or AssigneeID
// clears the field; ClearDueDate removes the due date.
type UpdateTaskRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Status        *string    `json:"status"`
	Priority      *string    `json:"priority"`
	MilestoneID   *string    `json:"milestone_id"`
	AssigneeID    *string    `json:"assignee_id"`
	DueDate       *time.Time `json:"due_date"`
	ClearDueDate  bool       `json:"clear_due_date"`
	EstimateHours *float64   `json:"estimate_hours"`
	Position      *int       `json:"position"`
	Tags          *[]string  `json:"tags"`
}

type ListFilter struct {
	ProjectID   string
	Status      string
	AssigneeID  string
	MilestoneID string
	Query       string
	Overdue     bool
	Now         time.Time
	Limit       int
	Offset      int
}

// Validate rejects assignee and milestone filters that cannot name a row.
func (f ListFilter) Validate() error {
	for _, id := range []string{f.AssigneeID, f.MilestoneID} {
		if id != "" && uuid.Validate(id) != nil {
			return ErrInvalidFilter
		}
	}
	return nil
}

func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone, StatusBlocked:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// NormalizeTags trims, drops empties and de-duplicates while keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
