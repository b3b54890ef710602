package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apihttp "github.com/taskdeck/taskdeck-backend/internal/api/http"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	projectdomain "github.com/taskdeck/taskdeck-backend/internal/projects/domain"
	"github.com/taskdeck/taskdeck-backend/internal/tasks/domain"
)

func (h *Handler) create(c *gin.Context) {
	var req domain.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	t, err := h.svc.Create(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to create task")
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := apihttp.Pagination(c)
	overdue, _ := strconv.ParseBool(c.Query("overdue"))

	filter := domain.ListFilter{
		Status:      c.Query("status"),
		AssigneeID:  c.Query("assignee"),
		MilestoneID: c.Query("milestone"),
		Query:       c.Query("q"),
		Overdue:     overdue,
		Limit:       limit,
		Offset:      offset,
	}
	if err := filter.Validate(); err != nil {
		writeError(c, err, "failed to list tasks")
		return
	}

	items, total, err := h.svc.List(c.Request.Context(), auth.UserID(c), c.Param("id"), filter)
	if err != nil {
		writeError(c, err, "failed to list tasks")
		return
	}
	c.JSON(http.StatusOK, apihttp.NewPage(items, total))
}

func (h *Handler) get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load task")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) update(c *gin.Context) {
	var req domain.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	t, err := h.svc.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to update task")
		return
	}
	c.JSON(http.StatusOK, t)
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) setStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	t, err := h.svc.SetStatus(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err, "failed to update task status")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete task")
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
	case errors.Is(err, domain.ErrInvalidTitle), errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPriority), errors.Is(err, domain.ErrInvalidEstimate),
		errors.Is(err, domain.ErrAssigneeNotMember), errors.Is(err, domain.ErrMilestoneMismatch),
		errors.Is(err, domain.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
