package http

import "github.com/gin-gonic/gin"

func (h *Handler) Register(projects, attachments *gin.RouterGroup) {
	projects.POST("/:id/attachments", h.upload)
	projects.GET("/:id/attachments", h.list)

	attachments.GET("/:id", h.get)
	attachments.GET("/:id/download", h.download)
	attachments.DELETE("/:id", h.delete)
}
