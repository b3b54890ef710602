package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/reports/domain"
)

type Service interface {
	Dashboard(ctx context.Context, userID string) (*domain.Dashboard, error)
	Project(ctx context.Context, userID, publicID string) (*domain.ProjectReport, error)
}

type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(projects, reports *gin.RouterGroup) {
	projects.GET("/:id/report", h.project)
	reports.GET("/dashboard", h.dashboard)
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err, "failed to build dashboard")
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) project(c *gin.Context) {
	r, err := h.svc.Project(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to build project report")
		return
	}
	c.JSON(http.StatusOK, r)
}

func writeError(c *gin.Context, err error, fallback string) {
	if errors.Is(err, projectdomain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	logging.FromContext(c.Request.Context()).WithError(err).Error(fallback)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
