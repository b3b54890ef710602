package http

import "github.com/gin-gonic/gin"

// Register attaches the project-scoped routes to projects (mounted at /projects)
// and the milestone routes to milestones (mounted at /milestones).
func (h *Handler) Register(projects, milestones *gin.RouterGroup) {
	projects.POST("/:id/milestones", h.create)
	projects.GET("/:id/milestones", h.list)

	milestones.GET("/:id", h.get)
	milestones.PATCH("/:id", h.update)
	milestones.DELETE("/:id", h.delete)
}
