package domain

import "time"

const (
	StatusOpen      = "open"
	StatusCompleted = "completed"
)

type Milestone struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Progress    Progress   `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Progress counts the milestone's live tasks.
type Progress struct {
	Total   int     `json:"total"`
	Done    int     `json:"done"`
	Percent float64 `json:"percent"`
}

type CreateMilestoneRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateMilestoneRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
	Status       *string    `json:"status"`
}

func ValidStatus(s string) bool {
	return s == StatusOpen || s == StatusCompleted
}
