package health

import (
	"context"
	"net/http"
	"time"

	"github.com/barbearia/calendario/internal/app/system/httperr"
	"github.com/barbearia/calendario/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is the part of *mongo.Client the health check uses.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client Pinger
	Log    *zap.Logger
	now    func() time.Time
}

// NewHandler constructs a health Handler with the Mongo client and logger.
// client may be nil when no database is configured.
func NewHandler(client Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Log:    logger,
		now:    time.Now,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

// Serve handles GET /health.
//
// The process is up whenever this answers, so the status is always 200:
//
//	{ "status":"ok", "timestamp":"2026-03-10T12:00:00.123Z", "database":"connected" }
//
// database is "disconnected" when the ping fails.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		Database:  "connected",
	}

	if h.Client == nil {
		resp.Database = "disconnected"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
		defer cancel()

		if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
			h.Log.Warn("health-check: mongo ping failed", zap.Error(err))
			resp.Database = "disconnected"
		}
	}

	httperr.WriteJSON(w, http.StatusOK, resp)
}
