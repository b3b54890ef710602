package http

import "github.com/gin-gonic/gin"

// Register attaches the auth routes. requireAuth guards the account endpoints and
// limit throttles the credential endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth, limit gin.HandlerFunc) {
	rg.POST("/register", limit, h.register)
	rg.POST("/login", limit, h.login)
	rg.POST("/logout", h.logout)
	rg.POST("/refresh", h.refresh)
	rg.POST("/forgot-password", limit, h.forgotPassword)
	rg.POST("/reset-password", limit, h.resetPassword)

	rg.GET("/me", requireAuth, h.getProfile)
	rg.PUT("/me", requireAuth, h.updateProfile)
	rg.POST("/change-password", requireAuth, h.changePassword)
}
