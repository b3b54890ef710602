package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db"`
	Redis     string    `json:"redis"`
}

type HealthHandler struct {
	serviceName string
	version     string
	db          *sql.DB
	redis       *redis.Client
}

func NewHealthHandler(serviceName, version string, db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		db:          db,
		redis:       rdb,
	}
}

// HealthCheck always answers 200; dependency state is in the body.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = upDown(h.db.PingContext(ctx))
	}
	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = upDown(h.redis.Ping(ctx).Err())
	}

	status := "healthy"
	switch {
	case dbStatus == "down":
		status = "unhealthy"
	case redisStatus == "down":
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        dbStatus,
		Redis:     redisStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

func upDown(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}
