package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
	authdomain "github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

type fakeService struct {
	Service
	created    domain.CreateProjectRequest
	createdBy  string
	listFilter domain.ListFilter
	err        error
}

func (f *fakeService) Create(_ context.Context, userID string, req domain.CreateProjectRequest) (*domain.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created, f.createdBy = req, userID
	return &domain.Project{ID: "p1", PublicID: "prj-12345-6789", Name: req.Name, OwnerID: userID, Role: domain.RoleOwner, Tags: []string{}}, nil
}

func (f *fakeService) List(_ context.Context, filter domain.ListFilter) ([]domain.Project, int, error) {
	f.listFilter = filter
	return []domain.Project{{PublicID: "prj-1", Name: "A"}}, 1, nil
}

func (f *fakeService) Get(context.Context, string, string) (*domain.Project, error) {
	return nil, f.err
}

func (f *fakeService) Delete(context.Context, string, string) error { return f.err }

func (f *fakeService) AddMember(_ context.Context, _, _, email, role string) (*domain.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Member{UserID: "u2", Email: email, Role: role, AddedAt: time.Now()}, nil
}

func newRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		auth.SetIdentity(c, &authdomain.Identity{UserID: "alice"})
		c.Next()
	})
	New(svc).Register(api.Group("/projects"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateProject(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc)

	w := do(r, http.MethodPost, "/api/v1/projects", `{"name":"Apollo","priority":"high","tags":["space"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var got domain.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Apollo", got.Name)
	assert.Equal(t, "prj-12345-6789", got.PublicID)
	assert.Equal(t, "alice", svc.createdBy)
	assert.Equal(t, "high", svc.created.Priority)
}

func TestCreateProject_Errors(t *testing.T) {
	w := do(newRouter(&fakeService{}), http.MethodPost, "/api/v1/projects", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(newRouter(&fakeService{err: domain.ErrInvalidName}), http.MethodPost, "/api/v1/projects", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(newRouter(&fakeService{err: assert.AnError}), http.MethodPost, "/api/v1/projects", `{"name":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestListProjects(t *testing.T) {
	svc := &fakeService{}
	w := do(newRouter(svc), http.MethodGet, "/api/v1/projects?status=active&q=apo&limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, domain.ListFilter{UserID: "alice", Status: "active", Query: "apo", Limit: 5, Offset: 10}, svc.listFilter)
	var page struct {
		Items []domain.Project `json:"items"`
		Total int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "prj-1", page.Items[0].PublicID)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrMemberExists, http.StatusConflict},
		{domain.ErrOwnerRemoval, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := do(newRouter(&fakeService{err: tt.err}), http.MethodDelete, "/api/v1/projects/prj-1", "")
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}
}

func TestAddMember(t *testing.T) {
	w := do(newRouter(&fakeService{}), http.MethodPost, "/api/v1/projects/prj-1/members", `{"email":"bob@example.com","role":"editor"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"editor"`)

	w = do(newRouter(&fakeService{}), http.MethodPost, "/api/v1/projects/prj-1/members", `{"role":"editor"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
