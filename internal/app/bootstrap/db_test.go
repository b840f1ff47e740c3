package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barbearia/calendario/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
)

// unreachableConfig points at a port nothing listens on.
func unreachableConfig(t *testing.T) AppConfig {
	cfg := testConfig(t)
	cfg.MongoURI = "mongodb://127.0.0.1:1/?directConnection=true"
	cfg.MongoConnectTimeout = 200 * time.Millisecond
	return cfg
}

func TestConnectDB_UnreachableContinues(t *testing.T) {
	cfg := unreachableConfig(t)

	deps, err := ConnectDB(context.Background(), nil, cfg, testLogger())
	if err != nil {
		t.Fatalf("ConnectDB without fail-fast: %v", err)
	}
	defer Shutdown(context.Background(), nil, cfg, deps, testLogger())

	if deps.MongoConnected {
		t.Error("MongoConnected should be false")
	}
	if deps.MongoClient == nil || deps.MongoDatabase == nil {
		t.Error("client and database handles should still be set")
	}
	if deps.SchemaRetry == nil {
		t.Error("an unreachable database should get a schema retry worker")
	}
	if _, ok := deps.Revoker.(*auth.MemoryRevoker); !ok || deps.Sweeper == nil {
		t.Errorf("revoker = %T, sweeper = %v; want memory revoker with sweeper", deps.Revoker, deps.Sweeper)
	}
	if deps.Limiter == nil || deps.Metrics == nil {
		t.Error("limiter and metrics should be set")
	}

	// schema setup is deferred, not failed
	if err := EnsureSchema(context.Background(), nil, cfg, deps, testLogger()); err != nil {
		t.Errorf("EnsureSchema: %v", err)
	}
}

func TestConnectDB_FailFast(t *testing.T) {
	cfg := unreachableConfig(t)
	cfg.DBFailFast = true

	deps, err := ConnectDB(context.Background(), nil, cfg, testLogger())
	if err == nil {
		t.Fatal("expected fail-fast error")
	}
	if deps.MongoClient != nil {
		t.Error("no client should be returned on failure")
	}
}

func TestConnectDB_MetricsDisabled(t *testing.T) {
	cfg := unreachableConfig(t)
	cfg.MetricsEnabled = false

	deps, err := ConnectDB(context.Background(), nil, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer Shutdown(context.Background(), nil, cfg, deps, testLogger())

	if deps.Metrics != nil {
		t.Error("metrics should be nil when disabled")
	}
}

// Release stands in for the Shutdown hook waffle skips after a signal.
func TestRelease_ClosesWhatShutdownDidNot(t *testing.T) {
	cfg := unreachableConfig(t)

	deps, err := ConnectDB(context.Background(), nil, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := Release(time.Second); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := deps.MongoClient.Disconnect(context.Background()); !errors.Is(err, mongo.ErrClientDisconnected) {
		t.Errorf("client still connected after Release: %v", err)
	}
	if err := Release(time.Second); err != nil {
		t.Errorf("second Release should be a no-op: %v", err)
	}
}

func TestRelease_AfterShutdownIsNoop(t *testing.T) {
	cfg := unreachableConfig(t)

	deps, err := ConnectDB(context.Background(), nil, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := Shutdown(context.Background(), nil, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	// A second disconnect would fail with ErrClientDisconnected.
	if err := Release(time.Second); err != nil {
		t.Errorf("Release after Shutdown: %v", err)
	}
}
