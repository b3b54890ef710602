package http

import "github.com/gin-gonic/gin"

func (h *Handler) Register(projects, templates *gin.RouterGroup) {
	projects.POST("/:id/save-as-template", h.saveAsTemplate)

	templates.GET("", h.list)
	templates.POST("", h.create)
	templates.GET("/:id", h.get)
	templates.DELETE("/:id", h.delete)
	templates.POST("/:id/instantiate", h.instantiate)
}
