package app

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/linemk/commerce-core/internal/config"
)

// App holds process-wide resources. They are created once in main and
// passed explicitly to constructors.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *sql.DB
	// Redis is nil when the price cache is disabled.
	Redis *redis.Client
}

// NewApp opens the database and, if configured, the Redis price cache.
func NewApp(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	app := &App{
		Config: cfg,
		Logger: log,
		DB:     db,
	}

	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			db.Close()
			return nil, errors.Wrapf(err, "failed to ping redis at %s", cfg.Redis.Address)
		}
		app.Redis = rdb
	} else {
		log.Info("redis address not set, price cache disabled")
	}

	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close redis"))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close database"))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
