package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
)

// getProfile returns the current user's profile
func (h *Handler) getProfile(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err, "failed to load user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// updateProfile updates the user's profile
func (h *Handler) updateProfile(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req struct {
		DisplayName *string `json:"display_name,omitempty"`
		AvatarURL   *string `json:"avatar_url,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.authService.UpdateProfile(c.Request.Context(), userID, &domain.UpdateUserRequest{
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		h.writeError(c, err, "failed to update user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) changePassword(c *gin.Context) {
	userID := auth.UserID(c)

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
			return
		}
		h.writeError(c, err, "failed to change password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
