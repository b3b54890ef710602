package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
	authdomain "github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
)

type fakeService struct {
	Service
	err error
}

func (f *fakeService) Create(_ context.Context, _, _ string, req domain.CreateRuleRequest) (*domain.Rule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Rule{ID: "r1", Name: req.Name, Trigger: req.Trigger, Action: req.Action, Enabled: true}, nil
}

func newRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		auth.SetIdentity(c, &authdomain.Identity{UserID: "alice"})
		c.Next()
	})
	New(svc).Register(api.Group("/projects"), api.Group("/automation-rules"))
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateRule(t *testing.T) {
	body := `{"name":"tag","trigger":"task_created","action":"add_tag","action_value":"new"}`

	w := post(newRouter(&fakeService{}), "/api/v1/projects/prj-1/automation-rules", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"trigger":"task_created"`)

	for _, err := range []error{domain.ErrInvalidTrigger, domain.ErrInvalidActionValue} {
		w = post(newRouter(&fakeService{err: err}), "/api/v1/projects/prj-1/automation-rules", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, err.Error())
	}
}
