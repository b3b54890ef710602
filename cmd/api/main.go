package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskdeck/taskdeck-backend/config"
	"github.com/taskdeck/taskdeck-backend/internal/automation/engine"
	"github.com/taskdeck/taskdeck-backend/internal/bootstrap"
	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.WithError(err).Fatal("load config")
	}

	logging.Init(logging.Options{
		Level:       cfg.App.LogLevel,
		Environment: cfg.App.Environment,
		Service:     bootstrap.ServiceName,
		File:        cfg.App.LogFile,
	})
	log := logging.Logger
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, applied, err := bootstrap.OpenDB(ctx, &cfg.Database, true)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if len(applied) > 0 {
		log.WithField("migrations", applied).Info("applied migrations")
	}

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, starting degraded")
	}
	defer rdb.Close()

	app, err := bootstrap.NewApp(ctx, cfg, db, rdb)
	if err != nil {
		log.WithError(err).Fatal("wire services")
	}

	if n, err := app.Templates.SeedBuiltins(ctx); err != nil {
		log.WithError(err).Error("seed built-in templates")
	} else {
		log.WithField("count", n).Info("built-in templates seeded")
	}

	scheduler := engine.NewScheduler(app.Sweeper)
	if err := scheduler.Start(cfg.Automation.SweepCron); err != nil {
		log.WithError(err).Fatal("start automation scheduler")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.BuildRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	scheduler.Stop(shutdownCtx)
}
