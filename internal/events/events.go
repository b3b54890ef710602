package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

type Type string

const (
	TaskCreated       Type = "task.created"
	TaskUpdated       Type = "task.updated"
	TaskStatusChanged Type = "task.status_changed"
	TaskAssigned      Type = "task.assigned"
	TaskDeleted       Type = "task.deleted"

	MilestoneCreated   Type = "milestone.created"
	MilestoneUpdated   Type = "milestone.updated"
	MilestoneCompleted Type = "milestone.completed"
	MilestoneDeleted   Type = "milestone.deleted"

	ProjectCreated       Type = "project.created"
	ProjectUpdated       Type = "project.updated"
	ProjectDeleted       Type = "project.deleted"
	ProjectMemberAdded   Type = "project.member_added"
	ProjectMemberRemoved Type = "project.member_removed"

	AttachmentAdded   Type = "attachment.added"
	AttachmentRemoved Type = "attachment.removed"
)

const channelPrefix = "taskdeck:events:" // taskdeck:events:{project_id}

// Event is a change notification for a single project.
// Value carries the new status/assignee/etc. depending on Type.
type Event struct {
	Type        Type      `json:"type"`
	ProjectID   string    `json:"project_id"`
	TaskID      string    `json:"task_id,omitempty"`
	MilestoneID string    `json:"milestone_id,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	Value       string    `json:"value,omitempty"`
	Automated   bool      `json:"automated,omitempty"`
	At          time.Time `json:"at"`
}

// Handler reacts to an event. Returned errors are logged, not propagated.
type Handler func(ctx context.Context, e Event) error

// Publisher is what feature services depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus delivers events to in-process subscribers in registration order and
// mirrors them to Redis pub/sub when a client is configured.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	client   *redis.Client
}

func NewBus(client *redis.Client) *Bus {
	return &Bus{client: client}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			logging.FromContext(ctx).WithError(err).
				WithField("event", e.Type).
				Warn("event handler failed")
		}
	}

	if b.client == nil || e.ProjectID == "" {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := b.client.Publish(ctx, Channel(e.ProjectID), data).Err(); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("publish event to redis")
	}
}

// Channel is the Redis pub/sub channel for a project's events.
func Channel(projectID string) string {
	return fmt.Sprintf("%s%s", channelPrefix, projectID)
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) {}
