package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authdomain "github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	"github.com/taskdeck/taskdeck-backend/internal/events"
	"github.com/taskdeck/taskdeck-backend/internal/mail"
	taskdomain "github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
	taskservice "github.com/taskdeck/taskdeck-backend/internal/tasks/service"
	"github.com/taskdeck/taskdeck-backend/internal/testutil"
)

const (
	milestoneA = "0b6d7a52-0000-4000-8000-00000000000a"
	milestoneB = "0b6d7a52-0000-4000-8000-00000000000b"
)

// memTasks is an in-memory task repository for driving the real task service.
type memTasks struct {
	mu    sync.Mutex
	tasks map[string]*taskdomain.Task
}

func (m *memTasks) Create(_ context.Context, t *taskdomain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *memTasks) GetByID(_ context.Context, id string) (*taskdomain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, taskdomain.ErrNotFound
	}
	return t.Clone(), nil
}

func (m *memTasks) List(_ context.Context, f taskdomain.ListFilter) ([]taskdomain.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []taskdomain.Task
	for _, t := range m.tasks {
		if t.ProjectID != f.ProjectID {
			continue
		}
		if f.MilestoneID != "" && (t.MilestoneID == nil || *t.MilestoneID != f.MilestoneID) {
			continue
		}
		out = append(out, *t.Clone())
	}
	return out, len(out), nil
}

func (m *memTasks) ListOpenDue(_ context.Context, from, to time.Time) ([]taskdomain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []taskdomain.Task
	for _, t := range m.tasks {
		if t.DueDate != nil && t.DueDate.After(from) && !t.DueDate.After(to) && t.Status != taskdomain.StatusDone {
			out = append(out, *t.Clone())
		}
	}
	return out, nil
}

func (m *memTasks) Update(_ context.Context, t *taskdomain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *memTasks) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) MilestoneProjectID(context.Context, string) (string, error) {
	return testutil.ProjectID, nil
}

type memRules struct {
	mu    sync.Mutex
	rules []domain.Rule
}

func (m *memRules) add(r domain.Rule) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	r.ProjectID = testutil.ProjectID
	r.Enabled = true
	r.CreatedBy = "alice"
	m.rules = append(m.rules, r)
	return r.ID
}

func (m *memRules) ListEnabled(_ context.Context, projectID, trigger string) ([]domain.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Rule
	for _, r := range m.rules {
		if r.ProjectID == projectID && r.Trigger == trigger && r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRules) RecordFire(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rules {
		if m.rules[i].ID == id {
			m.rules[i].FireCount++
			m.rules[i].LastFiredAt = &at
		}
	}
	return nil
}

func (m *memRules) fires(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if r.ID == id {
			return r.FireCount
		}
	}
	return -1
}

type users map[string]string // id -> email

func (u users) GetByID(_ context.Context, id string) (*authdomain.User, error) {
	email, ok := u[id]
	if !ok {
		return nil, authdomain.ErrUserNotFound
	}
	return &authdomain.User{ID: id, Email: email, DisplayName: id}, nil
}

type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	fail error
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.sent = append(o.sent, msg)
	return nil
}

type fixture struct {
	tasks  *taskservice.TaskService
	repo   *memTasks
	rules  *memRules
	engine *Engine
	mail   *outbox
	bus    *events.Bus
}

func newFixture() *fixture {
	f := &fixture{
		repo:  &memTasks{tasks: map[string]*taskdomain.Task{}},
		rules: &memRules{},
		mail:  &outbox{},
		bus:   events.NewBus(nil),
	}
	f.tasks = taskservice.NewTaskService(f.repo, testutil.DefaultAccess(), f.bus)
	f.engine = New(f.rules, f.tasks, users{"bob": "bob@example.com"}, f.mail, "https://app.example")
	f.bus.Subscribe(f.engine.Handle)
	return f
}

func TestEngine_AppliesActionOnTrigger(t *testing.T) {
	f := newFixture()
	ruleID := f.rules.add(domain.Rule{Name: "triage", Trigger: domain.TriggerTaskCreated, Action: domain.ActionSetPriority, ActionValue: "high"})

	task, err := f.tasks.Create(context.Background(), "bob", testutil.PublicID, taskdomain.CreateTaskRequest{Title: "bug"})
	require.NoError(t, err)

	stored, err := f.tasks.GetUnchecked(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "high", stored.Priority)
	assert.Equal(t, 1, f.rules.fires(ruleID))
}

func TestEngine_AutomatedChangesDoNotRetrigger(t *testing.T) {
	f := newFixture()
	start := f.rules.add(domain.Rule{Name: "start", Trigger: domain.TriggerTaskCreated, Action: domain.ActionSetStatus, ActionValue: "in_progress"})
	chained := f.rules.add(domain.Rule{Name: "chained", Trigger: domain.TriggerTaskStatusChanged, Action: domain.ActionAddTag, ActionValue: "chained"})

	task, err := f.tasks.Create(context.Background(), "bob", testutil.PublicID, taskdomain.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)

	stored, err := f.tasks.GetUnchecked(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskdomain.StatusInProgress, stored.Status)
	assert.Empty(t, stored.Tags)
	assert.Equal(t, 1, f.rules.fires(start))
	assert.Equal(t, 0, f.rules.fires(chained))

	// A user's own status change still triggers the rule.
	_, err = f.tasks.SetStatus(context.Background(), "bob", task.ID, taskdomain.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, 1, f.rules.fires(chained))
}

func TestEngine_TriggerValueMustMatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ruleID := f.rules.add(domain.Rule{Name: "ship", Trigger: domain.TriggerTaskStatusChanged, TriggerValue: "done", Action: domain.ActionAddTag, ActionValue: "shipped"})

	task, err := f.tasks.Create(ctx, "bob", testutil.PublicID, taskdomain.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)

	_, err = f.tasks.SetStatus(ctx, "bob", task.ID, taskdomain.StatusInReview)
	require.NoError(t, err)
	assert.Equal(t, 0, f.rules.fires(ruleID))

	_, err = f.tasks.SetStatus(ctx, "bob", task.ID, taskdomain.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, 1, f.rules.fires(ruleID))

	stored, _ := f.tasks.GetUnchecked(ctx, task.ID)
	assert.Equal(t, []string{"shipped"}, stored.Tags)
}

func TestEngine_NotifyAssignee(t *testing.T) {
	f := newFixture()
	f.rules.add(domain.Rule{Name: "heads up", Trigger: domain.TriggerTaskAssigned, Action: domain.ActionNotifyAssignee})

	_, err := f.tasks.Create(context.Background(), "alice", testutil.PublicID, taskdomain.CreateTaskRequest{Title: "Review <PR>", AssigneeID: testutil.Ptr("bob")})
	require.NoError(t, err)

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, "bob@example.com", msg.To)
	assert.Equal(t, "[heads up] Review <PR>", msg.Subject)
	assert.Contains(t, msg.HTML, "Review &lt;PR&gt;")
	assert.Contains(t, msg.HTML, "https://app.example/tasks/")
}

func TestEngine_MilestoneCompletedMovesOpenTasks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ruleID := f.rules.add(domain.Rule{Name: "roll over", Trigger: domain.TriggerMilestoneCompleted, Action: domain.ActionMoveToMilestone, ActionValue: milestoneB})

	open, err := f.tasks.Create(ctx, "bob", testutil.PublicID, taskdomain.CreateTaskRequest{Title: "open", MilestoneID: testutil.Ptr(milestoneA)})
	require.NoError(t, err)
	done, err := f.tasks.Create(ctx, "bob", testutil.PublicID, taskdomain.CreateTaskRequest{Title: "done", MilestoneID: testutil.Ptr(milestoneA), Status: taskdomain.StatusDone})
	require.NoError(t, err)

	f.bus.Publish(ctx, events.Event{Type: events.MilestoneCompleted, ProjectID: testutil.ProjectID, MilestoneID: milestoneA, ActorID: "bob"})

	got, _ := f.tasks.GetUnchecked(ctx, open.ID)
	assert.Equal(t, milestoneB, *got.MilestoneID)
	got, _ = f.tasks.GetUnchecked(ctx, done.ID)
	assert.Equal(t, milestoneA, *got.MilestoneID)
	assert.Equal(t, 1, f.rules.fires(ruleID))
}

func TestEngine_UnchangedActionIsNotAFire(t *testing.T) {
	f := newFixture()
	ruleID := f.rules.add(domain.Rule{Name: "medium", Trigger: domain.TriggerTaskCreated, Action: domain.ActionSetPriority, ActionValue: "medium"})

	_, err := f.tasks.Create(context.Background(), "bob", testutil.PublicID, taskdomain.CreateTaskRequest{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, 0, f.rules.fires(ruleID))
}
