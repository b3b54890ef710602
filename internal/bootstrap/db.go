package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/taskdeck-backend/config"
	"github.com/taskdeck/taskdeck-backend/internal/storage/postgres"
)

// OpenDB connects to Postgres and, when migrate is set, applies pending migrations.
func OpenDB(ctx context.Context, cfg *config.DatabaseConfig, migrate bool) (*sql.DB, []string, error) {
	db, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if !migrate {
		return db, nil, nil
	}

	applied, err := postgres.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db, applied, nil
}

// OpenRedis returns a client even when the ping fails so the server can start
// degraded; the error is for the caller to log.
func OpenRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		return rdb, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
