package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apihttp "github.com/taskdeck/taskdeck-backend/internal/api/http"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	"github.com/taskdeck/taskdeck-backend/internal/projects/domain"
)

func (h *Handler) create(c *gin.Context) {
	var req domain.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), auth.UserID(c), req)
	if err != nil {
		writeError(c, err, "failed to create project")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := apihttp.Pagination(c)
	items, total, err := h.svc.List(c.Request.Context(), domain.ListFilter{
		UserID: auth.UserID(c),
		Status: c.Query("status"),
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(c, err, "failed to list projects")
		return
	}
	c.JSON(http.StatusOK, apihttp.NewPage(items, total))
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to load project")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) update(c *gin.Context) {
	var req domain.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	p, err := h.svc.Update(c.Request.Context(), auth.UserID(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to update project")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete project")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listMembers(c *gin.Context) {
	members, err := h.svc.ListMembers(c.Request.Context(), auth.UserID(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to list members")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": members})
}

type addMemberReq struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

func (h *Handler) addMember(c *gin.Context) {
	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	m, err := h.svc.AddMember(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Email, req.Role)
	if err != nil {
		writeError(c, err, "failed to add member")
		return
	}
	c.JSON(http.StatusCreated, m)
}

type updateMemberReq struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) updateMember(c *gin.Context) {
	var req updateMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	err := h.svc.UpdateMemberRole(c.Request.Context(), auth.UserID(c), c.Param("id"), c.Param("user_id"), req.Role)
	if err != nil {
		writeError(c, err, "failed to update member")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeMember(c *gin.Context) {
	if err := h.svc.RemoveMember(c.Request.Context(), auth.UserID(c), c.Param("id"), c.Param("user_id")); err != nil {
		writeError(c, err, "failed to remove member")
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrMemberNotFound), errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrMemberExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidName), errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidPriority), errors.Is(err, domain.ErrInvalidDates),
		errors.Is(err, domain.ErrInvalidRole), errors.Is(err, domain.ErrOwnerRemoval):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.FromContext(c.Request.Context()).WithError(err).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
