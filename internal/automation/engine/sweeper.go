package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	taskdomain "github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

const (
	firedKeyPrefix = "taskdeck:automation:fired:" // {rule}:{task}:{trigger}
	firedTTL       = 24 * time.Hour
)

// SweepResult counts what one sweep did.
type SweepResult struct {
	DueSoon   int `json:"due_soon"`
	Overdue   int `json:"overdue"`
	Fired     int `json:"fired"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Sweeper fires the time-based triggers. Each (rule, task, trigger) fires at
// most once per firedTTL.
type Sweeper struct {
	engine  *Engine
	rules   RuleStore
	tasks   Tasks
	rdb     *redis.Client
	dueSoon time.Duration
	now     func() time.Time
}

func NewSweeper(engine *Engine, rules RuleStore, tasks Tasks, rdb *redis.Client, dueSoon time.Duration) *Sweeper {
	return &Sweeper{
		engine:  engine,
		rules:   rules,
		tasks:   tasks,
		rdb:     rdb,
		dueSoon: dueSoon,
		now:     time.Now,
	}
}

func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now().UTC()

	overdue, err := s.tasks.OpenDue(ctx, time.Unix(0, 0).UTC(), now)
	if err != nil {
		return res, fmt.Errorf("load overdue tasks: %w", err)
	}
	dueSoon, err := s.tasks.OpenDue(ctx, now, now.Add(s.dueSoon))
	if err != nil {
		return res, fmt.Errorf("load due tasks: %w", err)
	}
	res.Overdue = len(overdue)
	res.DueSoon = len(dueSoon)

	if err := s.fireAll(ctx, domain.TriggerTaskOverdue, overdue, &res); err != nil {
		return res, err
	}
	if err := s.fireAll(ctx, domain.TriggerTaskDueSoon, dueSoon, &res); err != nil {
		return res, err
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"due_soon":  res.DueSoon,
		"overdue":   res.Overdue,
		"fired":     res.Fired,
		"unchanged": res.Unchanged,
		"failed":    res.Failed,
		"skipped":   res.Skipped,
	}).Info("automation sweep finished")
	return res, nil
}

func (s *Sweeper) fireAll(ctx context.Context, trigger string, tasks []taskdomain.Task, res *SweepResult) error {
	byProject := map[string][]domain.Rule{}

	for _, t := range tasks {
		rules, ok := byProject[t.ProjectID]
		if !ok {
			var err error
			rules, err = s.rules.ListEnabled(ctx, t.ProjectID, trigger)
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}
			byProject[t.ProjectID] = rules
		}

		for _, rule := range rules {
			key := firedKey(rule.ID, t.ID, trigger)
			first, err := s.claim(ctx, key)
			if err != nil {
				return err
			}
			if !first {
				res.Skipped++
				continue
			}
			fired, err := s.engine.Fire(ctx, rule, t.ID)
			if err != nil {
				res.Failed++
				logging.FromContext(ctx).WithError(err).Warn("automation sweep action failed")
				if err := s.rdb.Del(ctx, key).Err(); err != nil {
					logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("release sweep claim")
				}
				continue
			}
			if !fired {
				res.Unchanged++
				continue
			}
			res.Fired++
		}
	}
	return nil
}

func firedKey(ruleID, taskID, trigger string) string {
	return firedKeyPrefix + ruleID + ":" + taskID + ":" + trigger
}

// claim reports whether this is the first fire of the key within firedTTL.
// Failed fires delete the key so the next sweep retries.
func (s *Sweeper) claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, s.now().UTC().Format(time.RFC3339), firedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim sweep key: %w", err)
	}
	return ok, nil
}
