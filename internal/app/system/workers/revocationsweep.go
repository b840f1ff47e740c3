// internal/app/system/workers/revocationsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper drops expired entries and reports how many it removed.
type Sweeper interface {
	Sweep() int
}

// RevocationSweep is a background worker that prunes expired token
// revocations from an in-memory store.
type RevocationSweep struct {
	store    Sweeper
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRevocationSweep creates a new sweep worker that runs every interval.
func NewRevocationSweep(store Sweeper, logger *zap.Logger, interval time.Duration) *RevocationSweep {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RevocationSweep{
		store:    store,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop. It ends when ctx is done or
// Stop is called.
func (w *RevocationSweep) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	w.log.Info("revocation sweep worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe
// to call more than once.
func (w *RevocationSweep) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("revocation sweep worker stopped")
	})
}

func (w *RevocationSweep) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *RevocationSweep) sweep() {
	if n := w.store.Sweep(); n > 0 {
		w.log.Debug("pruned expired revocations", zap.Int("count", n))
	}
}
