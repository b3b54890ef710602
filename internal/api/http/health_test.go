package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthHandler) (int, HealthResponse) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h.RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return rr.Code, resp
}

func TestHealthCheck_NoDependencies(t *testing.T) {
	code, resp := serveHealth(t, NewHealthHandler("taskdeck-api", "1.0.0", nil, nil))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "taskdeck-api", resp.Service)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "disabled", resp.DB)
	assert.Equal(t, "disabled", resp.Redis)
}

func TestHealthCheck_AllUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	code, resp := serveHealth(t, NewHealthHandler("taskdeck-api", "1.0.0", db, rdb))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "up", resp.DB)
	assert.Equal(t, "up", resp.Redis)
}

func TestHealthCheck_RedisDownDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	code, resp := serveHealth(t, NewHealthHandler("taskdeck-api", "1.0.0", nil, rdb))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Redis)
}

func TestHealthCheck_DBDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(assert.AnError)

	code, resp := serveHealth(t, NewHealthHandler("taskdeck-api", "1.0.0", db, nil))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "down", resp.DB)
}
