package bootstrap

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	apihttp "github.com/taskdeck/taskdeck-backend/internal/api/http"
	"github.com/taskdeck/taskdeck-backend/internal/api/http/middleware"
	atthttp "github.com/taskdeck/taskdeck-backend/internal/attachments/http"
	authhttp "github.com/taskdeck/taskdeck-backend/internal/auth/http"
	authmw "github.com/taskdeck/taskdeck-backend/internal/auth/middleware"
	autohttp "github.com/taskdeck/taskdeck-backend/internal/automation/http"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
	mshttp "github.com/taskdeck/taskdeck-backend/internal/milestones/http"
	projecthttp "github.com/taskdeck/taskdeck-backend/internal/projects/http"
	reporthttp "github.com/taskdeck/taskdeck-backend/internal/reports/http"
	taskhttp "github.com/taskdeck/taskdeck-backend/internal/tasks/http"
	tplhttp "github.com/taskdeck/taskdeck-backend/internal/templates/http"
)

const ServiceName = "taskdeck-api"

func BuildRouter(app *App) *gin.Engine {
	cfg := app.Config

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logging.Logger.WithError(err).Warn("invalid trusted proxies, using the socket peer address")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition", "X-Content-Checksum"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(authmw.WebGuard(cfg.Auth.CookieHost))

	apihttp.NewHealthHandler(ServiceName, cfg.App.Version, app.DB, app.Redis).RegisterRoutes(r)

	api := r.Group("/api/v1")
	requireAuth := authmw.RequireAuth(app.Verifier, app.Auth, cfg.Auth.CookieHost)
	limiter := middleware.NewRateLimiter(cfg.Auth.LoginRatePerMin)

	authhttp.New(app.Auth, app.Verifier, authhttp.CookieSettings{
		Host:       cfg.Auth.CookieHost,
		Secure:     cfg.Auth.CookieSecure,
		AccessTTL:  int(cfg.Auth.AccessTokenTTL.Seconds()),
		RefreshTTL: int(cfg.Auth.RefreshTokenTTL.Seconds()),
	}).Register(api.Group("/auth"), requireAuth, limiter.Middleware())

	protected := api.Group("", requireAuth)
	projects := protected.Group("/projects")

	projecthttp.New(app.Projects).Register(projects)
	taskhttp.New(app.Tasks).Register(projects, protected.Group("/tasks"))
	mshttp.New(app.Milestones).Register(projects, protected.Group("/milestones"))
	atthttp.New(app.Attachments, cfg.Storage.AttachmentMaxBytes).Register(projects, protected.Group("/attachments"))
	autohttp.New(app.Rules).Register(projects, protected.Group("/automation-rules"))
	tplhttp.New(app.Templates).Register(projects, protected.Group("/templates"))
	reporthttp.New(app.Reports).Register(projects, protected.Group("/reports"))

	if cfg.Server.WebRoot != "" {
		r.NoRoute(serveWeb(cfg.Server.WebRoot))
	}

	return r
}

// serveWeb serves the dashboard build, falling back to index.html for client-side routes.
func serveWeb(root string) gin.HandlerFunc {
	index := filepath.Join(root, "index.html")
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		p := filepath.Join(root, filepath.Clean("/"+c.Request.URL.Path))
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			c.File(p)
			return
		}
		c.File(index)
	}
}
