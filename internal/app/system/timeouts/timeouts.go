// Package timeouts holds the per-operation database budgets used by the
// handlers. The budgets live in one process-wide value that bootstrap sets
// from REQUEST_TIMEOUT, so a database call always finishes before the
// request itself is abandoned.
package timeouts

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Budget is the set of database deadlines.
//
// Ping bounds connectivity checks (/status, startup pings). Short bounds a
// single-document read or write. Medium bounds list queries and the
// conflict check inside booking.
type Budget struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
}

// Defaults is the budget for a 15s request timeout.
var Defaults = Budget{Ping: 2 * time.Second, Short: 5 * time.Second, Medium: 10 * time.Second}

var current atomic.Pointer[Budget]

func init() { Set(Defaults) }

// ForRequestTimeout splits a request deadline into database budgets:
// a third for single-document work, two thirds for lists. ping is kept
// as given. A non-positive request timeout yields Defaults.
func ForRequestTimeout(request, ping time.Duration) Budget {
	if request <= 0 {
		return Defaults
	}
	b := Budget{Ping: ping, Short: request / 3, Medium: request * 2 / 3}
	if b.Ping <= 0 {
		b.Ping = Defaults.Ping
	}
	return b
}

// Set replaces the process-wide budget. Zero fields fall back to Defaults.
func Set(b Budget) {
	if b.Ping <= 0 {
		b.Ping = Defaults.Ping
	}
	if b.Short <= 0 {
		b.Short = Defaults.Short
	}
	if b.Medium <= 0 {
		b.Medium = Defaults.Medium
	}
	current.Store(&b)
}

// Get returns the budget in effect.
func Get() Budget { return *current.Load() }

func Ping() time.Duration   { return current.Load().Ping }
func Short() time.Duration  { return current.Load().Short }
func Medium() time.Duration { return current.Load().Medium }

// WithTimeout derives a context bounded by d. Its cancel func logs op at
// Warn when d, not the parent, was what expired.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list appointments")
//	defer cancel()
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, op string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		expired := errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil
		cancel()
		if expired && log != nil {
			log.Warn("db deadline exceeded", zap.String("op", op), zap.Duration("budget", d))
		}
	}
}
