package service

import (
	"context"

	autodomain "github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	msdomain "github.com/taskdeck/taskdeck-backend/internal/milestones/domain"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	taskdomain "github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

const maxSavedTasks = 1000

type projectReader interface {
	Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error)
	Get(ctx context.Context, userID, publicID string) (*projectdomain.Project, error)
}

type milestoneLister interface {
	ListByProject(ctx context.Context, projectID string) ([]msdomain.Milestone, error)
}

type taskLister interface {
	List(ctx context.Context, f taskdomain.ListFilter) ([]taskdomain.Task, int, error)
}

type ruleLister interface {
	ListByProject(ctx context.Context, projectID string) ([]autodomain.Rule, error)
}

// RepoSource is the ProjectSource backed by the feature services and repositories.
type RepoSource struct {
	projects   projectReader
	milestones milestoneLister
	tasks      taskLister
	rules      ruleLister
}

func NewRepoSource(projects projectReader, milestones milestoneLister, tasks taskLister, rules ruleLister) *RepoSource {
	return &RepoSource{projects: projects, milestones: milestones, tasks: tasks, rules: rules}
}

func (s *RepoSource) Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error) {
	return s.projects.Resolve(ctx, userID, publicID)
}

func (s *RepoSource) Get(ctx context.Context, userID, publicID string) (*projectdomain.Project, error) {
	return s.projects.Get(ctx, userID, publicID)
}

func (s *RepoSource) Milestones(ctx context.Context, projectID string) ([]msdomain.Milestone, error) {
	return s.milestones.ListByProject(ctx, projectID)
}

func (s *RepoSource) Tasks(ctx context.Context, projectID string) ([]taskdomain.Task, error) {
	items, _, err := s.tasks.List(ctx, taskdomain.ListFilter{ProjectID: projectID, Limit: maxSavedTasks})
	return items, err
}

func (s *RepoSource) Rules(ctx context.Context, projectID string) ([]autodomain.Rule, error) {
	return s.rules.ListByProject(ctx, projectID)
}
