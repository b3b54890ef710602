package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/taskdeck-backend/config"
	"github.com/taskdeck/taskdeck-backend/internal/attachments/blob"
	attrepo "github.com/taskdeck/taskdeck-backend/internal/attachments/repository"
	attsvc "github.com/taskdeck/taskdeck-backend/internal/attachments/service"
	"github.com/taskdeck/taskdeck-backend/internal/auth"
	authrepo "github.com/taskdeck/taskdeck-backend/internal/auth/repository"
	authsvc "github.com/taskdeck/taskdeck-backend/internal/auth/service"
	"github.com/taskdeck/taskdeck-backend/internal/automation/engine"
	autorepo "github.com/taskdeck/taskdeck-backend/internal/automation/repository"
	autosvc "github.com/taskdeck/taskdeck-backend/internal/automation/service"
	"github.com/taskdeck/taskdeck-backend/internal/events"
	"github.com/taskdeck/taskdeck-backend/internal/mail"
	msrepo "github.com/taskdeck/taskdeck-backend/internal/milestones/repository"
	mssvc "github.com/taskdeck/taskdeck-backend/internal/milestones/service"
	projectrepo "github.com/taskdeck/taskdeck-backend/internal/projects/repository"
	projectsvc "github.com/taskdeck/taskdeck-backend/internal/projects/service"
	"github.com/taskdeck/taskdeck-backend/internal/reports/cache"
	reportrepo "github.com/taskdeck/taskdeck-backend/internal/reports/repository"
	reportsvc "github.com/taskdeck/taskdeck-backend/internal/reports/service"
	taskrepo "github.com/taskdeck/taskdeck-backend/internal/tasks/repository"
	tasksvc "github.com/taskdeck/taskdeck-backend/internal/tasks/service"
	"github.com/taskdeck/taskdeck-backend/internal/templates/builtin"
	tplrepo "github.com/taskdeck/taskdeck-backend/internal/templates/repository"
	tplsvc "github.com/taskdeck/taskdeck-backend/internal/templates/service"
)

// App holds the wired services shared by the API server and the CLI.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client
	Bus    *events.Bus

	Verifier    auth.Verifier
	Auth        *authsvc.AuthService
	Projects    *projectsvc.ProjectService
	Tasks       *tasksvc.TaskService
	Milestones  *mssvc.MilestoneService
	Attachments *attsvc.AttachmentService
	Rules       *autosvc.RuleService
	Templates   *tplsvc.TemplateService
	Reports     *reportsvc.ReportService

	Engine  *engine.Engine
	Sweeper *engine.Sweeper
}

func NewApp(ctx context.Context, cfg *config.Config, db *sql.DB, rdb *redis.Client) (*App, error) {
	bus := events.NewBus(rdb)
	mailer := mail.New(cfg.Mail)

	users := authrepo.NewUserRepository(db)
	sessions := authrepo.NewSessionStore(rdb)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL)

	verifier, err := newVerifier(ctx, cfg, tokens, sessions)
	if err != nil {
		return nil, err
	}

	projectRepo := projectrepo.NewProjectRepository(db)
	taskRepo := taskrepo.NewTaskRepository(db)
	milestoneRepo := msrepo.NewMilestoneRepository(db)
	ruleRepo := autorepo.NewRuleRepository(db)

	projects := projectsvc.NewProjectService(projectRepo, bus)
	tasks := tasksvc.NewTaskService(taskRepo, projects, bus)

	store, err := newBlobStore(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}

	eng := engine.New(ruleRepo, tasks, users, mailer, cfg.Auth.FrontendURL)
	reportCache := cache.New(rdb, cfg.Reports.CacheTTL)

	bus.Subscribe(eng.Handle)
	bus.Subscribe(reportCache.Handler())

	return &App{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Bus:         bus,
		Verifier:    verifier,
		Auth:        authsvc.NewAuthService(users, sessions, tokens, mailer, cfg.Auth),
		Projects:    projects,
		Tasks:       tasks,
		Milestones:  mssvc.NewMilestoneService(milestoneRepo, projects, bus),
		Attachments: attsvc.NewAttachmentService(attrepo.NewAttachmentRepository(db), store, projects, tasks, bus, cfg.Storage.AttachmentMaxBytes),
		Rules:       autosvc.NewRuleService(ruleRepo, projects),
		Templates: tplsvc.NewTemplateService(
			tplrepo.NewTemplateRepository(db),
			tplrepo.NewTransactor(db),
			tplsvc.NewRepoSource(projects, milestoneRepo, taskRepo, ruleRepo),
			builtin.Load,
		),
		Reports: reportsvc.NewReportService(reportrepo.NewReportRepository(db), projects, reportCache),
		Engine:  eng,
		Sweeper: engine.NewSweeper(eng, ruleRepo, tasks, rdb, cfg.Automation.DueSoon),
	}, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, tokens *auth.TokenManager, revoked auth.RevocationChecker) (auth.Verifier, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderFirebase:
		client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return nil, err
		}
		return auth.NewFirebaseVerifier(client), nil
	case config.AuthProviderJWT:
		return auth.NewJWTVerifier(tokens, revoked), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}

func newBlobStore(ctx context.Context, cfg *config.StorageConfig) (blob.Store, error) {
	switch cfg.Driver {
	case config.StorageDriverS3:
		return blob.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
	case config.StorageDriverLocal:
		return blob.NewLocalStore(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
