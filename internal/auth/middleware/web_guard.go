package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck-backend/internal/auth"
)

const (
	DashboardPath = "/dashboard"
	LoginPath     = "/auth/login"
)

var protectedPrefixes = []string{"/dashboard", "/projects", "/tasks", "/reports", "/settings"}

// WebGuard protects the served dashboard pages. It only checks that a session
// cookie is present; the API validates the token itself.
func WebGuard(cookieHost string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || path == "/health" || path == "/healthz" {
			c.Next()
			return
		}

		host := auth.CookieHost(c.Request, cookieHost)
		token := auth.ExtractToken(c.GetHeader("Cookie"), auth.UserCookieName(host), auth.AccessCookieName(host))
		hasToken := token != ""

		switch {
		case path == "/":
			if hasToken {
				redirect(c, DashboardPath)
			} else {
				redirect(c, LoginPath)
			}
			return
		case hasPrefix(path, "/auth") && hasToken:
			redirect(c, DashboardPath)
			return
		case isProtected(path) && !hasToken:
			redirect(c, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			return
		}

		c.Next()
	}
}

func redirect(c *gin.Context, to string) {
	c.Redirect(http.StatusFound, to)
	c.Abort()
}

func isProtected(path string) bool {
	for _, p := range protectedPrefixes {
		if hasPrefix(path, p) {
			return true
		}
	}
	return false
}

// hasPrefix matches whole path segments: "/tasks" matches "/tasks" and "/tasks/1" but not "/tasksx".
func hasPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
