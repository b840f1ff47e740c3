// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/barbearia/calendario/internal/app/system/auth"
	"github.com/barbearia/calendario/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultSchemaRetryInterval = 5 * time.Second

// Startup runs once before the handler is built. It sizes the database
// budgets from the request deadline and starts the background workers on
// ctx, which waffle cancels on SIGINT/SIGTERM.
func Startup(ctx context.Context, _ *config.CoreConfig, cfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if cfg.LogStartupDiagnostics {
		logStartupDiagnostics(cfg, logger)
	}

	timeouts.Set(timeouts.ForRequestTimeout(cfg.RequestTimeout, cfg.MongoConnectTimeout))

	if deps.Sweeper != nil {
		deps.Sweeper.Start(ctx)
	}
	if deps.Limiter != nil {
		deps.Limiter.Start(ctx)
	}
	if deps.SchemaRetry != nil {
		deps.SchemaRetry.Start(ctx)
	}
	return nil
}

// newRevoker picks Redis when REDIS_URL is set and reachable. An
// unreachable Redis falls back to memory unless DB_FAIL_FAST is on.
func newRevoker(ctx context.Context, cfg AppConfig, logger *zap.Logger) (auth.Revoker, *redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Info("token revocation kept in memory")
		return auth.NewMemoryRevoker(), nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		if cfg.DBFailFast {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Error("Redis unreachable, keeping token revocation in memory", zap.Error(err))
		return auth.NewMemoryRevoker(), nil, nil
	}

	logger.Info("token revocation stored in Redis", zap.String("addr", opts.Addr))
	return auth.NewRedisRevoker(rdb), rdb, nil
}

// OnReady prints the human-readable ready line. waffle calls it just
// before it binds the listener, so a bind failure can still follow it.
func OnReady(_ *config.CoreConfig, cfg AppConfig, _ DBDeps, logger *zap.Logger) {
	logger.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
	fmt.Fprintf(console, "Servidor rodando na porta %d\n", cfg.Port)
}
