package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskdeck/taskdeck-backend/internal/logging"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/reports/cache"
	"github.com/taskdeck/taskdeck-backend/internal/reports/domain"
	taskdomain "github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

const week = 7 * 24 * time.Hour

type Repository interface {
	ProjectIDs(ctx context.Context, userID string) ([]string, error)
	ProjectsByStatus(ctx context.Context, userID string) (map[string]int, error)
	TasksByStatus(ctx context.Context, userID string) (map[string]int, error)
	Deadlines(ctx context.Context, userID string, now, weekEnd time.Time) (domain.DeadlineCounts, error)
	ProjectTasksByStatus(ctx context.Context, projectID string) (map[string]int, error)
	ProjectTasksByPriority(ctx context.Context, projectID string) (map[string]int, error)
	ProjectOverdue(ctx context.Context, projectID string, now time.Time) (int, error)
	Milestones(ctx context.Context, projectID string) ([]domain.MilestoneProgress, error)
	Workload(ctx context.Context, projectID string) ([]domain.Workload, error)
}

type ProjectAccess interface {
	Resolve(ctx context.Context, userID, publicID string) (*projectdomain.Access, error)
}

type ReportService struct {
	repo     Repository
	projects ProjectAccess
	cache    *cache.Cache
	now      func() time.Time
}

func NewReportService(repo Repository, projects ProjectAccess, c *cache.Cache) *ReportService {
	return &ReportService{repo: repo, projects: projects, cache: c, now: time.Now}
}

func (s *ReportService) Dashboard(ctx context.Context, userID string) (*domain.Dashboard, error) {
	key := cache.DashboardKey(userID)
	var cached domain.Dashboard
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	now := s.now().UTC()
	var (
		projectIDs []string
		byProject  map[string]int
		byTask     map[string]int
		deadlines  domain.DeadlineCounts
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		projectIDs, err = s.repo.ProjectIDs(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		byProject, err = s.repo.ProjectsByStatus(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		byTask, err = s.repo.TasksByStatus(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		deadlines, err = s.repo.Deadlines(gctx, userID, now, now.Add(week))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tasksTotal := domain.Sum(byTask)
	d := &domain.Dashboard{
		ProjectsTotal:     domain.Sum(byProject),
		ProjectsByStatus:  byProject,
		TasksTotal:        tasksTotal,
		TasksByStatus:     byTask,
		CompletionPercent: domain.Percent(byTask[taskdomain.StatusDone], tasksTotal),
		OverdueTasks:      deadlines.Overdue,
		DueThisWeek:       deadlines.DueThisWeek,
		AssignedToMeOpen:  deadlines.AssignedOpen,
		GeneratedAt:       now,
	}

	s.cacheSet(ctx, key, d, projectIDs...)
	return d, nil
}

func (s *ReportService) Project(ctx context.Context, userID, publicID string) (*domain.ProjectReport, error) {
	access, err := s.projects.Resolve(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}

	key := cache.ProjectKey(access.ProjectID)
	var cached domain.ProjectReport
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	now := s.now().UTC()
	r := &domain.ProjectReport{ProjectID: access.ProjectID, GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.TasksByStatus, err = s.repo.ProjectTasksByStatus(gctx, access.ProjectID)
		return err
	})
	g.Go(func() (err error) {
		r.TasksByPriority, err = s.repo.ProjectTasksByPriority(gctx, access.ProjectID)
		return err
	})
	g.Go(func() (err error) {
		r.OverdueTasks, err = s.repo.ProjectOverdue(gctx, access.ProjectID, now)
		return err
	})
	g.Go(func() (err error) {
		r.Milestones, err = s.repo.Milestones(gctx, access.ProjectID)
		return err
	})
	g.Go(func() (err error) {
		r.Workload, err = s.repo.Workload(gctx, access.ProjectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.CompletionPercent = domain.Percent(r.TasksByStatus[taskdomain.StatusDone], domain.Sum(r.TasksByStatus))

	s.cacheSet(ctx, key, r, access.ProjectID)
	return r, nil
}

func (s *ReportService) cacheGet(ctx context.Context, key string, dst any) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("report cache read failed")
		return false
	}
	return hit
}

func (s *ReportService) cacheSet(ctx context.Context, key string, v any, projectIDs ...string) {
	if err := s.cache.Set(ctx, key, v, projectIDs...); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("report cache write failed")
	}
}
