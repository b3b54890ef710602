package domain

import (
	"strings"
	"time"
)

const (
	StatusPlanning  = "planning"
	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Project is a workspace of tasks, milestones and attachments shared by its members.
// Role is the caller's role and is only set on reads made on behalf of a user.
type Project struct {
	ID          string     `json:"id"`
	PublicID    string     `json:"public_id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Color       string     `json:"color"`
	Tags        []string   `json:"tags"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	TemplateID  *string    `json:"template_id,omitempty"`
	Role        string     `json:"role,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Member struct {
	ProjectID   string    `json:"project_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AddedAt     time.Time `json:"added_at"`
}

// Access is a user's resolved membership in a project.
type Access struct {
	ProjectID string
	PublicID  string
	UserID    string
	Role      string
}

func (a *Access) CanWrite() bool  { return roleRank(a.Role) >= roleRank(RoleEditor) }
func (a *Access) CanManage() bool { return a.Role == RoleOwner }

// RequireWrite returns ErrForbidden unless the member is an editor or owner.
func (a *Access) RequireWrite() error {
	if !a.CanWrite() {
		return ErrForbidden
	}
	return nil
}

// RequireOwner returns ErrForbidden unless the member owns the project.
func (a *Access) RequireOwner() error {
	if !a.CanManage() {
		return ErrForbidden
	}
	return nil
}

type CreateProjectRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Color       string     `json:"color"`
	Tags        []string   `json:"tags"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	TemplateID  *string    `json:"-"`
}

// UpdateProjectRequest is a partial update; nil fields are left unchanged.
type UpdateProjectRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	Color       *string    `json:"color"`
	Tags        *[]string  `json:"tags"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
}

type ListFilter struct {
	UserID string
	Status string
	Query  string
	Limit  int
	Offset int
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPlanning, StatusActive, StatusOnHold, StatusCompleted, StatusArchived:
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

func ValidRole(r string) bool {
	return roleRank(r) > 0
}

func roleRank(r string) int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
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
