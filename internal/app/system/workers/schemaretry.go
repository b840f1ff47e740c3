// internal/app/system/workers/schemaretry.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SchemaRetry waits for a database that was unreachable at boot. It pings
// every interval and, on the first successful ping, runs ensure. Once
// ensure succeeds the worker exits and Done is closed.
type SchemaRetry struct {
	ping        func(context.Context) error
	ensure      func(context.Context) error
	log         *zap.Logger
	interval    time.Duration
	pingTimeout time.Duration

	done     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSchemaRetry creates an unstarted worker. A non-positive interval
// means 5s.
func NewSchemaRetry(ping, ensure func(context.Context) error, logger *zap.Logger, interval time.Duration) *SchemaRetry {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SchemaRetry{
		ping:        ping,
		ensure:      ensure,
		log:         logger,
		interval:    interval,
		pingTimeout: interval,
		done:        make(chan struct{}),
		stopCh:      make(chan struct{}),
	}
}

// Start launches the retry loop. The first attempt happens immediately.
func (w *SchemaRetry) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info("schema retry worker started", zap.Duration("interval", w.interval))
}

// Stop ends the loop and waits for it. It is safe to call more than once
// and after the worker has finished on its own.
func (w *SchemaRetry) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
	})
}

// Done is closed after the schema has been applied.
func (w *SchemaRetry) Done() <-chan struct{} { return w.done }

func (w *SchemaRetry) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if w.attempt(ctx) {
			close(w.done)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
		}
	}
}

func (w *SchemaRetry) attempt(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, w.pingTimeout)
	err := w.ping(pingCtx)
	cancel()
	if err != nil {
		w.log.Debug("database still unreachable", zap.Error(err))
		return false
	}
	if err := w.ensure(ctx); err != nil {
		w.log.Warn("schema apply failed, will retry", zap.Error(err))
		return false
	}
	w.log.Info("database reachable, schema applied")
	return true
}
