package status_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/barbearia/calendario/internal/app/features/status"
)

func get(t *testing.T, h *status.Handler) map[string]string {
	t.Helper()
	rec := httptest.NewRecorder()
	status.Routes(h).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return body
}

func TestServe_EchoesEnvironment(t *testing.T) {
	body := get(t, status.NewHandler("production"))

	if body["api"] != "Calendário / Barbearia" {
		t.Errorf("api: got %q", body["api"])
	}
	if body["versao"] != "1.0.0" {
		t.Errorf("versao: got %q", body["versao"])
	}
	if body["ambiente"] != "production" {
		t.Errorf("ambiente: got %q, want %q", body["ambiente"], "production")
	}
}

func TestServe_DefaultsToDevelopment(t *testing.T) {
	body := get(t, status.NewHandler(""))
	if body["ambiente"] != "development" {
		t.Errorf("ambiente: got %q, want %q", body["ambiente"], "development")
	}
}
