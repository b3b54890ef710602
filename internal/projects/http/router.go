package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group (mounted at /projects).
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.PATCH("/:id", h.update)
	rg.DELETE("/:id", h.delete)

	rg.GET("/:id/members", h.listMembers)
	rg.POST("/:id/members", h.addMember)
	rg.PATCH("/:id/members/:user_id", h.updateMember)
	rg.DELETE("/:id/members/:user_id", h.removeMember)
}
