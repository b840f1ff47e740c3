// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/barbearia/calendario/internal/app/system/auth"
	"github.com/barbearia/calendario/internal/app/system/indexes"
	"github.com/barbearia/calendario/internal/app/system/metrics"
	"github.com/barbearia/calendario/internal/app/system/ratelimit"
	"github.com/barbearia/calendario/internal/app/system/validators"
	"github.com/barbearia/calendario/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// schemaRetryInterval is how often a database that was down at boot is
// pinged again.
var schemaRetryInterval = defaultSchemaRetryInterval

// ConnectDB builds every backend: the MongoDB client, the token revoker,
// the login limiter and the metrics. It records what it opened so Release
// can close it.
//
// A client that cannot be constructed is always fatal. A failed ping is
// fatal only with DB_FAIL_FAST; otherwise it is logged, the server starts
// anyway and a schema retry worker is prepared for when MongoDB comes up.
func ConnectDB(ctx context.Context, _ *config.CoreConfig, cfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	deps, err := connectMongo(ctx, cfg, logger)
	if err != nil {
		return DBDeps{}, err
	}

	revoker, rdb, err := newRevoker(ctx, cfg, logger)
	if err != nil {
		_ = deps.MongoClient.Disconnect(context.Background())
		return DBDeps{}, err
	}
	deps.Revoker = revoker
	deps.Redis = rdb
	if mem, ok := revoker.(*auth.MemoryRevoker); ok {
		deps.Sweeper = workers.NewRevocationSweep(mem, logger, 0)
	}

	deps.Limiter = ratelimit.NewLoginLimiter()
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.New()
	}

	track(deps, logger)
	return deps, nil
}

func connectMongo(ctx context.Context, cfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(cfg.MongoConnectTimeout).
		SetServerSelectionTimeout(cfg.MongoConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("MongoDB client init failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("mongo client: %w", err)
	}
	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(cfg.MongoDatabase),
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.MongoConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		if cfg.DBFailFast {
			logger.Error("MongoDB unreachable, aborting (DB_FAIL_FAST)", zap.Error(err))
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
		}
		logger.Error("MongoDB unreachable, continuing without database", zap.Error(err))
		db := deps.MongoDatabase
		deps.SchemaRetry = workers.NewSchemaRetry(
			func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
			func(ctx context.Context) error { return ensureSchema(ctx, db, logger) },
			logger, schemaRetryInterval)
		return deps, nil
	}

	deps.MongoConnected = true
	logger.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	return deps, nil
}

// EnsureSchema creates collections, validators and indexes. It is skipped
// when the startup ping failed; the schema retry worker covers that case.
// Failures abort startup only with DB_FAIL_FAST.
func EnsureSchema(ctx context.Context, _ *config.CoreConfig, cfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if !deps.MongoConnected || deps.MongoDatabase == nil {
		logger.Warn("deferring schema setup: database not connected")
		return nil
	}
	err := ensureSchema(ctx, deps.MongoDatabase, logger)
	if err != nil && !cfg.DBFailFast {
		logger.Error("schema setup failed, continuing", zap.Error(err))
		return nil
	}
	return err
}

func ensureSchema(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, db, logger); err != nil {
		return fmt.Errorf("collection validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}
	return nil
}
