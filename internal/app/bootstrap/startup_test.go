package bootstrap

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/barbearia/calendario/internal/app/system/auth"
	"github.com/barbearia/calendario/internal/app/system/ratelimit"
	"github.com/barbearia/calendario/internal/app/system/timeouts"
	"github.com/barbearia/calendario/internal/app/system/workers"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// testConfig is the default config as loaded from an empty environment.
func testConfig(t *testing.T) AppConfig {
	t.Helper()
	return appConfigFrom(defaultValues(), testLogger())
}

func TestNewRevoker_Memory(t *testing.T) {
	revoker, rdb, err := newRevoker(context.Background(), testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("newRevoker: %v", err)
	}
	if _, ok := revoker.(*auth.MemoryRevoker); !ok {
		t.Errorf("revoker = %T, want *auth.MemoryRevoker", revoker)
	}
	if rdb != nil {
		t.Error("no Redis client expected without REDIS_URL")
	}
}

func TestNewRevoker_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()

	revoker, rdb, err := newRevoker(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("newRevoker: %v", err)
	}
	defer rdb.Close()

	if _, ok := revoker.(*auth.RedisRevoker); !ok {
		t.Fatalf("revoker = %T, want *auth.RedisRevoker", revoker)
	}
	if err := revoker.Revoke(context.Background(), "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if !mr.Exists(auth.RevokedKeyPrefix + "jti-1") {
		t.Error("revocation not written to Redis")
	}
}

func TestNewRevoker_UnreachableRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + addr
	cfg.MongoConnectTimeout = 200 * time.Millisecond

	revoker, rdb, err := newRevoker(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("newRevoker without fail-fast: %v", err)
	}
	if _, ok := revoker.(*auth.MemoryRevoker); !ok || rdb != nil {
		t.Errorf("revoker = %T, want memory fallback", revoker)
	}

	cfg.DBFailFast = true
	if _, _, err := newRevoker(context.Background(), cfg, testLogger()); err == nil {
		t.Error("fail-fast should report the unreachable Redis")
	}
}

func TestNewRevoker_InvalidURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "not a url"

	if _, _, err := newRevoker(context.Background(), cfg, testLogger()); err == nil {
		t.Error("expected an error for a malformed REDIS_URL")
	}
}

func TestStartup_SetsBudgetsAndStartsWorkersOnContext(t *testing.T) {
	t.Cleanup(func() { timeouts.Set(timeouts.Defaults) })
	cfg := testConfig(t)
	cfg.RequestTimeout = 9 * time.Second

	var ensured atomic.Int32
	retry := workers.NewSchemaRetry(
		func(context.Context) error { return nil },
		func(context.Context) error { ensured.Add(1); return nil },
		testLogger(), 5*time.Millisecond)
	deps := DBDeps{
		Sweeper:     workers.NewRevocationSweep(auth.NewMemoryRevoker(), testLogger(), 5*time.Millisecond),
		Limiter:     ratelimit.NewLoginLimiter(),
		SchemaRetry: retry,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := Startup(ctx, nil, cfg, deps, testLogger()); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	defer closeDeps(context.Background(), deps, testLogger())

	select {
	case <-retry.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("schema retry was not started")
	}
	if ensured.Load() != 1 {
		t.Errorf("ensure ran %d times, want 1", ensured.Load())
	}

	want := timeouts.ForRequestTimeout(9*time.Second, cfg.MongoConnectTimeout)
	if got := timeouts.Get(); got != want {
		t.Errorf("budget = %+v, want %+v", got, want)
	}
}

func TestOnReady_PrintsPort(t *testing.T) {
	var out bytes.Buffer
	prev := console
	console = &out
	t.Cleanup(func() { console = prev })

	cfg := testConfig(t)
	cfg.Port = 4321
	OnReady(nil, cfg, DBDeps{}, testLogger())

	if got := out.String(); got != "Servidor rodando na porta 4321\n" {
		t.Errorf("ready line = %q", got)
	}
}
