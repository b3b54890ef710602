package domain

import "time"

// Dashboard summarises every project the caller belongs to.
type Dashboard struct {
	ProjectsTotal     int            `json:"projects_total"`
	ProjectsByStatus  map[string]int `json:"projects_by_status"`
	TasksTotal        int            `json:"tasks_total"`
	TasksByStatus     map[string]int `json:"tasks_by_status"`
	CompletionPercent float64        `json:"completion_percent"`
	OverdueTasks      int            `json:"overdue_tasks"`
	DueThisWeek       int            `json:"due_this_week"`
	AssignedToMeOpen  int            `json:"assigned_to_me_open"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

type ProjectReport struct {
	ProjectID         string              `json:"project_id"`
	TasksByStatus     map[string]int      `json:"tasks_by_status"`
	TasksByPriority   map[string]int      `json:"tasks_by_priority"`
	CompletionPercent float64             `json:"completion_percent"`
	OverdueTasks      int                 `json:"overdue_tasks"`
	Milestones        []MilestoneProgress `json:"milestones"`
	Workload          []Workload          `json:"workload"`
	GeneratedAt       time.Time           `json:"generated_at"`
}

type MilestoneProgress struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Total   int     `json:"total"`
	Done    int     `json:"done"`
	Percent float64 `json:"percent"`
}

// Workload counts open and done tasks per assignee. Unassigned tasks use an empty UserID.
type Workload struct {
	UserID string `json:"user_id"`
	Open   int    `json:"open"`
	Done   int    `json:"done"`
}

// DeadlineCounts are open-task counts relative to a point in time.
type DeadlineCounts struct {
	Overdue      int
	DueThisWeek  int
	AssignedOpen int
}

// Sum returns the total across all buckets.
func Sum(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}
