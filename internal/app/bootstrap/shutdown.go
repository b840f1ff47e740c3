// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// console receives the ready line printed by OnReady.
var console io.Writer = os.Stdout

// opened is what ConnectDB built for this process. waffle skips the
// Shutdown hook once its context is cancelled, which is the case after
// SIGINT/SIGTERM; Release closes these backends in that case.
var opened struct {
	mu     sync.Mutex
	deps   *DBDeps
	log    *zap.Logger
	closed bool
}

func track(deps DBDeps, logger *zap.Logger) {
	opened.mu.Lock()
	defer opened.mu.Unlock()
	opened.deps = &deps
	opened.log = logger
	opened.closed = false
}

// Shutdown stops background work and closes backend connections. Every
// step runs even if an earlier one fails.
func Shutdown(ctx context.Context, _ *config.CoreConfig, _ AppConfig, deps DBDeps, logger *zap.Logger) error {
	opened.mu.Lock()
	opened.closed = true
	opened.mu.Unlock()
	return closeDeps(ctx, deps, logger)
}

// Release closes the backends from ConnectDB unless Shutdown already did.
// main calls it after app.Run returns.
func Release(timeout time.Duration) error {
	opened.mu.Lock()
	deps, logger, closed := opened.deps, opened.log, opened.closed
	opened.closed = true
	opened.mu.Unlock()
	if deps == nil || closed {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return closeDeps(ctx, *deps, logger)
}

func closeDeps(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if deps.SchemaRetry != nil {
		deps.SchemaRetry.Stop()
	}
	if deps.Sweeper != nil {
		deps.Sweeper.Stop()
	}
	if deps.Limiter != nil {
		deps.Limiter.Stop()
	}
	if deps.Redis != nil {
		logger.Info("closing Redis client")
		if err := deps.Redis.Close(); err != nil {
			logger.Error("Redis close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
