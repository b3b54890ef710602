package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apihttp "github.com/taskdeck/taskdeck-backend/internal/api/http"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/templates/domain"
	"github.com/taskdeck/taskdeck-backend/internal/templates/service"
)

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), auth.UserID(c))
	if err != nil {
		writeError(c, err, "failed to list templates")
		return
	}
	c.JSON(http.StatusOK, apihttp.NewPage(items, len(items)))
}

func (h *Handler) get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load template")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) create(c *gin.Context) {
	var req domain.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		writeError(c, err, "failed to create template")
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete template")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) instantiate(c *gin.Context) {
	var req domain.InstantiateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	p, err := h.svc.Instantiate(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to create project from template")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) saveAsTemplate(c *gin.Context) {
	var req domain.SaveAsTemplateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	t, err := h.svc.SaveAsTemplate(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to save template")
		return
	}
	c.JSON(http.StatusCreated, t)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, projectdomain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, projectdomain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case service.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
