package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/internal/events"
	"github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

type memRepo struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
	members  map[string]map[string]string // project id -> user id -> role
	users    map[string]string            // email -> user id
	seq      int
}

func newMemRepo() *memRepo {
	return &memRepo{
		projects: map[string]*domain.Project{},
		members:  map[string]map[string]string{},
		users:    map[string]string{"bob@example.com": "bob", "cat@example.com": "cat"},
	}
}

func (m *memRepo) Create(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = fmt.Sprintf("p%d", m.seq)
	p.PublicID = fmt.Sprintf("prj-%05d-0001", m.seq)
	cp := *p
	m.projects[p.ID] = &cp
	m.members[p.ID] = map[string]string{p.OwnerID: domain.RoleOwner}
	return nil
}

func (m *memRepo) find(publicID string) *domain.Project {
	for _, p := range m.projects {
		if p.PublicID == publicID {
			return p
		}
	}
	return nil
}

func (m *memRepo) GetForUser(_ context.Context, userID, publicID string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.find(publicID)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	role, ok := m.members[p.ID][userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	cp.Role = role
	return &cp, nil
}

func (m *memRepo) Access(ctx context.Context, userID, publicID string) (*domain.Access, error) {
	p, err := m.GetForUser(ctx, userID, publicID)
	if err != nil {
		return nil, err
	}
	return &domain.Access{ProjectID: p.ID, PublicID: p.PublicID, UserID: userID, Role: p.Role}, nil
}

func (m *memRepo) AccessByID(ctx context.Context, userID, projectID string) (*domain.Access, error) {
	m.mu.Lock()
	p, ok := m.projects[projectID]
	m.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.Access(ctx, userID, p.PublicID)
}

func (m *memRepo) List(_ context.Context, f domain.ListFilter) ([]domain.Project, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Project
	for id, p := range m.projects {
		if role, ok := m.members[id][f.UserID]; ok {
			cp := *p
			cp.Role = role
			out = append(out, cp)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) Update(_ context.Context, p *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *memRepo) SoftDelete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.projects[id]
	delete(m.projects, id)
	return ok, nil
}

func (m *memRepo) ListMembers(_ context.Context, projectID string) ([]domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Member
	for uid, role := range m.members[projectID] {
		out = append(out, domain.Member{ProjectID: projectID, UserID: uid, Role: role})
	}
	return out, nil
}

func (m *memRepo) FindUserByEmail(_ context.Context, email string) (string, string, error) {
	id, ok := m.users[email]
	if !ok {
		return "", "", domain.ErrUserNotFound
	}
	return id, id, nil
}

func (m *memRepo) AddMember(_ context.Context, projectID, userID, role string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[projectID][userID]; ok {
		return time.Time{}, domain.ErrMemberExists
	}
	m.members[projectID][userID] = role
	return time.Now(), nil
}

func (m *memRepo) UpdateMemberRole(_ context.Context, projectID, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[projectID][userID]; !ok {
		return domain.ErrMemberNotFound
	}
	m.members[projectID][userID] = role
	return nil
}

func (m *memRepo) RemoveMember(_ context.Context, projectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[projectID][userID]; !ok {
		return domain.ErrMemberNotFound
	}
	delete(m.members[projectID], userID)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newService(t *testing.T) (*ProjectService, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewProjectService(newMemRepo(), rec), rec
}

func TestProjectService_CreateDefaults(t *testing.T) {
	svc, _ := newService(t)

	p, err := svc.Create(context.Background(), "alice", domain.CreateProjectRequest{Name: "  Apollo  ", Tags: []string{"x", "x", " "}})
	require.NoError(t, err)
	assert.Equal(t, "Apollo", p.Name)
	assert.Equal(t, domain.StatusPlanning, p.Status)
	assert.Equal(t, domain.PriorityMedium, p.Priority)
	assert.Equal(t, domain.RoleOwner, p.Role)
	assert.Equal(t, []string{"x"}, p.Tags)
}

func TestProjectService_CreateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)

	tests := []struct {
		name string
		req  domain.CreateProjectRequest
		want error
	}{
		{"blank name", domain.CreateProjectRequest{Name: "  "}, domain.ErrInvalidName},
		{"bad status", domain.CreateProjectRequest{Name: "A", Status: "done"}, domain.ErrInvalidStatus},
		{"bad priority", domain.CreateProjectRequest{Name: "A", Priority: "urgent"}, domain.ErrInvalidPriority},
		{"due before start", domain.CreateProjectRequest{Name: "A", StartDate: &start, DueDate: &before}, domain.ErrInvalidDates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "alice", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestProjectService_RolesAndVisibility(t *testing.T) {
	svc, rec := newService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "alice", domain.CreateProjectRequest{Name: "Apollo"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "stranger", p.PublicID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "non-members cannot see the project")

	_, err = svc.AddMember(ctx, "alice", p.PublicID, "Bob@Example.com", domain.RoleViewer)
	require.NoError(t, err)
	_, err = svc.AddMember(ctx, "alice", p.PublicID, "bob@example.com", domain.RoleEditor)
	assert.ErrorIs(t, err, domain.ErrMemberExists)
	_, err = svc.AddMember(ctx, "alice", p.PublicID, "cat@example.com", domain.RoleOwner)
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
	_, err = svc.AddMember(ctx, "alice", p.PublicID, "nobody@example.com", domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	name := "Renamed"
	_, err = svc.Update(ctx, "bob", p.PublicID, domain.UpdateProjectRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrForbidden, "viewers are read-only")

	require.NoError(t, svc.UpdateMemberRole(ctx, "alice", p.PublicID, "bob", domain.RoleEditor))
	updated, err := svc.Update(ctx, "bob", p.PublicID, domain.UpdateProjectRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, []events.Type{events.ProjectCreated, events.ProjectMemberAdded, events.ProjectUpdated}, rec.types())
	assert.Equal(t, "bob", rec.events[1].Value)

	assert.ErrorIs(t, svc.Delete(ctx, "bob", p.PublicID), domain.ErrForbidden)
	assert.ErrorIs(t, svc.RemoveMember(ctx, "alice", p.PublicID, "alice"), domain.ErrOwnerRemoval)
	assert.ErrorIs(t, svc.RemoveMember(ctx, "bob", p.PublicID, "alice"), domain.ErrForbidden)

	require.NoError(t, svc.RemoveMember(ctx, "bob", p.PublicID, "bob"), "members may leave")
	assert.Equal(t, events.ProjectMemberRemoved, rec.events[len(rec.events)-1].Type)
	require.NoError(t, svc.Delete(ctx, "alice", p.PublicID))
	_, err = svc.Get(ctx, "alice", p.PublicID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectService_ListRejectsUnknownStatus(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.List(context.Background(), domain.ListFilter{UserID: "alice", Status: "weird"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}
