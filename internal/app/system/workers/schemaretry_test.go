package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// flakyDB reports unreachable for the first downPings pings.
type flakyDB struct {
	downPings  int32
	pings      atomic.Int32
	ensures    atomic.Int32
	ensureErrs int32
}

func (f *flakyDB) ping(context.Context) error {
	if f.pings.Add(1) <= f.downPings {
		return errors.New("server selection error: connection refused")
	}
	return nil
}

func (f *flakyDB) ensure(context.Context) error {
	if f.ensures.Add(1) <= f.ensureErrs {
		return errors.New("create index: not primary")
	}
	return nil
}

func waitDone(t *testing.T, w *SchemaRetry) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("schema was never applied")
	}
}

func TestSchemaRetry_DatabaseDownAtBootThenUp(t *testing.T) {
	db := &flakyDB{downPings: 3}
	w := NewSchemaRetry(db.ping, db.ensure, zap.NewNop(), 5*time.Millisecond)
	w.Start(context.Background())
	defer w.Stop()

	waitDone(t, w)

	if got := db.pings.Load(); got != 4 {
		t.Errorf("pings = %d, want 4", got)
	}
	if got := db.ensures.Load(); got != 1 {
		t.Errorf("ensure calls = %d, want exactly 1", got)
	}

	time.Sleep(30 * time.Millisecond)
	if got := db.pings.Load(); got != 4 {
		t.Errorf("worker kept pinging after the schema was applied (%d pings)", got)
	}
}

func TestSchemaRetry_RetriesFailedEnsure(t *testing.T) {
	db := &flakyDB{ensureErrs: 2}
	w := NewSchemaRetry(db.ping, db.ensure, zap.NewNop(), 5*time.Millisecond)
	w.Start(context.Background())
	defer w.Stop()

	waitDone(t, w)

	if got := db.ensures.Load(); got != 3 {
		t.Errorf("ensure calls = %d, want 3", got)
	}
}

func TestSchemaRetry_StopsWithContext(t *testing.T) {
	db := &flakyDB{downPings: 1 << 30}
	w := NewSchemaRetry(db.ping, db.ensure, zap.NewNop(), 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	cancel()
	w.wg.Wait()
	w.Stop()

	select {
	case <-w.Done():
		t.Error("Done closed although the schema was never applied")
	default:
	}
	if got := db.ensures.Load(); got != 0 {
		t.Errorf("ensure calls = %d, want 0", got)
	}
}
