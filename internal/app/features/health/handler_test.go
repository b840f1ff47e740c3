package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context, *readpref.ReadPref) error { return f.err }

func serve(t *testing.T, h *Handler) (int, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	Routes(h).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, resp
}

func TestServe_DatabaseConnected(t *testing.T) {
	started := time.Now().Add(-time.Millisecond)
	code, resp := serve(t, NewHandler(fakePinger{}, zap.NewNop()))

	if code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, code)
	}
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want %q", resp.Status, "ok")
	}
	if resp.Database != "connected" {
		t.Errorf("database: got %q, want %q", resp.Database, "connected")
	}

	ts, err := time.Parse(time.RFC3339Nano, resp.Timestamp)
	if err != nil {
		t.Fatalf("timestamp %q is not RFC3339: %v", resp.Timestamp, err)
	}
	if !ts.After(started) {
		t.Errorf("timestamp %v should be after %v", ts, started)
	}
}

func TestServe_DatabaseDown_StillOK(t *testing.T) {
	code, resp := serve(t, NewHandler(fakePinger{err: errors.New("server selection timeout")}, zap.NewNop()))

	if code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, code)
	}
	if resp.Database != "disconnected" {
		t.Errorf("database: got %q, want %q", resp.Database, "disconnected")
	}
}

func TestServe_NoClient(t *testing.T) {
	_, resp := serve(t, NewHandler(nil, zap.NewNop()))
	if resp.Database != "disconnected" {
		t.Errorf("database: got %q, want %q", resp.Database, "disconnected")
	}
}

func TestServe_TimestampAdvances(t *testing.T) {
	h := NewHandler(fakePinger{}, zap.NewNop())
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	_, resp := serve(t, h)
	if resp.Timestamp != "2026-03-10T12:00:00Z" {
		t.Errorf("timestamp: got %q", resp.Timestamp)
	}
}
