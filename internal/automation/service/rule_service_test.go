package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/testutil"
)

type memRepo map[string]domain.Rule

func (m memRepo) Create(_ context.Context, r *domain.Rule) error {
	r.ID = uuid.NewString()
	m[r.ID] = *r
	return nil
}

func (m memRepo) GetByID(_ context.Context, id string) (*domain.Rule, error) {
	r, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m memRepo) ListByProject(_ context.Context, projectID string) ([]domain.Rule, error) {
	var out []domain.Rule
	for _, r := range m {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m memRepo) Update(_ context.Context, r *domain.Rule) error {
	m[r.ID] = *r
	return nil
}

func (m memRepo) Delete(_ context.Context, id string) error {
	delete(m, id)
	return nil
}

func TestRuleService_CRUD(t *testing.T) {
	repo := memRepo{}
	svc := NewRuleService(repo, testutil.DefaultAccess())
	ctx := context.Background()

	rule, err := svc.Create(ctx, "bob", "prj-1", domain.CreateRuleRequest{
		Name: " Done is low ", Trigger: domain.TriggerTaskStatusChanged, TriggerValue: "done",
		Action: domain.ActionSetPriority, ActionValue: "low",
	})
	require.NoError(t, err)
	assert.Equal(t, "Done is low", rule.Name)
	assert.True(t, rule.Enabled)
	assert.Equal(t, "p1", rule.ProjectID)
	assert.Equal(t, "bob", rule.CreatedBy)

	rules, err := svc.List(ctx, "vic", "prj-1")
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	_, err = svc.Update(ctx, "vic", rule.ID, domain.UpdateRuleRequest{Enabled: testutil.Ptr(false)})
	assert.ErrorIs(t, err, projectdomain.ErrForbidden)

	updated, err := svc.Update(ctx, "alice", rule.ID, domain.UpdateRuleRequest{Enabled: testutil.Ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.Enabled)

	_, err = svc.Update(ctx, "alice", rule.ID, domain.UpdateRuleRequest{ActionValue: testutil.Ptr("urgent")})
	assert.ErrorIs(t, err, domain.ErrInvalidActionValue)

	_, err = svc.Get(ctx, "stranger", rule.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "bob", rule.ID))
	assert.Empty(t, repo)
}

func TestRuleService_CreateValidates(t *testing.T) {
	svc := NewRuleService(memRepo{}, testutil.DefaultAccess())

	_, err := svc.Create(context.Background(), "bob", "prj-1", domain.CreateRuleRequest{Name: "x", Trigger: "whenever", Action: domain.ActionAddTag, ActionValue: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidTrigger)

	_, err = svc.Create(context.Background(), "vic", "prj-1", domain.CreateRuleRequest{Name: "x", Trigger: domain.TriggerTaskCreated, Action: domain.ActionAddTag, ActionValue: "a"})
	assert.ErrorIs(t, err, projectdomain.ErrForbidden)
}
