package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apihttp "github.com/taskdeck/taskdeck-backend/internal/api/http"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	"github.com/taskdeck/taskdeck-backend/internal/milestones/domain"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

func (h *Handler) create(c *gin.Context) {
	var req domain.CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	m, err := h.svc.Create(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to create milestone")
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to list milestones")
		return
	}
	c.JSON(http.StatusOK, apihttp.NewPage(items, len(items)))
}

func (h *Handler) get(c *gin.Context) {
	m, err := h.svc.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load milestone")
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) update(c *gin.Context) {
	var req domain.UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	m, err := h.svc.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to update milestone")
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete milestone")
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, projectdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, projectdomain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTitle), errors.Is(err, domain.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
