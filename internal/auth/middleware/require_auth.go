package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
	"github.com/taskdeck/taskdeck-backend/internal/auth/domain"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

// IdentityResolver maps a verified identity to a local user id.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id *domain.Identity) (string, error)
}

// RequireAuth validates the request token (bearer header or session cookie) and
// stores the caller's identity in the gin context.
func RequireAuth(verifier auth.Verifier, resolver IdentityResolver, cookieHost string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.RequestToken(c.Request, cookieHost)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}

		ctx := c.Request.Context()
		identity, err := verifier.Verify(ctx, token)
		if err != nil {
			if !auth.IsTokenError(err) {
				logging.FromContext(ctx).WithError(err).Error("verify token")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := resolver.ResolveIdentity(ctx, identity)
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("resolve identity")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		identity.UserID = userID

		auth.SetIdentity(c, identity)
		c.Next()
	}
}
