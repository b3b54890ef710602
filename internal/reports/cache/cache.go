package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/taskdeck-backend/internal/events"
)

const (
	keyPrefix   = "taskdeck:reports:"
	indexPrefix = "taskdeck:reports:index:" // taskdeck:reports:index:{project_id} -> set of cache keys
)

// Cache stores computed reports in Redis. Each entry is indexed under the
// projects it was computed from so a project event drops every dependent entry.
// A nil client or zero TTL disables caching.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

func DashboardKey(userID string) string {
	return fmt.Sprintf("%sdashboard:%s", keyPrefix, userID)
}

func ProjectKey(projectID string) string {
	return fmt.Sprintf("%sproject:%s", keyPrefix, projectID)
}

// Get decodes the cached value into dst. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// stale shape after a deploy
		c.rdb.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// Set stores v under key and registers it with each project it depends on.
func (c *Cache) Set(ctx context.Context, key string, v any, projectIDs ...string) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, data, c.ttl)
	for _, id := range projectIDs {
		idx := indexPrefix + id
		pipe.SAdd(ctx, idx, key)
		pipe.Expire(ctx, idx, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateProject removes every entry computed from the project.
func (c *Cache) InvalidateProject(ctx context.Context, projectID string) error {
	if !c.enabled() {
		return nil
	}
	idx := indexPrefix + projectID
	keys, err := c.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return err
	}
	keys = append(keys, ProjectKey(projectID), idx)
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateDashboard removes a single user's dashboard.
func (c *Cache) InvalidateDashboard(ctx context.Context, userID string) error {
	if !c.enabled() || userID == "" {
		return nil
	}
	return c.rdb.Del(ctx, DashboardKey(userID)).Err()
}

// Handler drops cached reports whenever an event touches a project. A user who
// just gained or lost a project has a dashboard that is not indexed under it yet.
func (c *Cache) Handler() events.Handler {
	return func(ctx context.Context, e events.Event) error {
		if e.ProjectID == "" {
			return nil
		}
		if err := c.InvalidateProject(ctx, e.ProjectID); err != nil {
			return err
		}
		switch e.Type {
		case events.ProjectCreated:
			return c.InvalidateDashboard(ctx, e.ActorID)
		case events.ProjectMemberAdded, events.ProjectMemberRemoved:
			return c.InvalidateDashboard(ctx, e.Value)
		}
		return nil
	}
}
