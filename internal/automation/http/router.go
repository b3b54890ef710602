package http

import "github.com/gin-gonic/gin"

func (h *Handler) Register(projects, rules *gin.RouterGroup) {
	projects.POST("/:id/automation-rules", h.create)
	projects.GET("/:id/automation-rules", h.list)

	rules.GET("/:id", h.get)
	rules.PATCH("/:id", h.update)
	rules.DELETE("/:id", h.delete)
}
