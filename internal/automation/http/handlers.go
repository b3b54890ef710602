package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apihttp "github.com/taskdeck/taskdeck-backend/internal/api/http"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/automation/domain"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

func (h *Handler) create(c *gin.Context) {
	var req domain.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rule, err := h.svc.Create(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to create rule")
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) list(c *gin.Context) {
	rules, err := h.svc.List(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to list rules")
		return
	}
	c.JSON(http.StatusOK, apihttp.NewPage(rules, len(rules)))
}

func (h *Handler) get(c *gin.Context) {
	rule, err := h.svc.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) update(c *gin.Context) {
	var req domain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rule, err := h.svc.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to update rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete rule")
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
	case errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrInvalidTrigger),
		errors.Is(err, domain.ErrInvalidAction), errors.Is(err, domain.ErrInvalidTriggerValue),
		errors.Is(err, domain.ErrInvalidActionValue):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
