package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
)

const (
	CtxUserID   = "user_id"
	CtxIdentity = "identity"
)

// SetIdentity stores the resolved identity on the gin context.
func SetIdentity(c *gin.Context, id *domain.Identity) {
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxIdentity, id)
}

// UserID extracts the authenticated user's id. It is set by RequireAuth.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

// IdentityFrom returns the verified identity, or nil for anonymous requests.
func IdentityFrom(c *gin.Context) *domain.Identity {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*domain.Identity)
	return id
}
