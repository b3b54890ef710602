package http

import "github.com/gin-gonic/gin"

// Register attaches the project-scoped routes to projects (mounted at /projects)
// and the task routes to tasks (mounted at /tasks).
func (h *Handler) Register(projects, tasks *gin.RouterGroup) {
	projects.POST("/:id/tasks", h.create)
	projects.GET("/:id/tasks", h.list)

	tasks.GET("/:id", h.get)
	tasks.PATCH("/:id", h.update)
	tasks.PATCH("/:id/status", h.setStatus)
	tasks.DELETE("/:id", h.delete)
}
