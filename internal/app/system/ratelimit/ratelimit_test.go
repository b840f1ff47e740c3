package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowUpToLimit(t *testing.T) {
	l := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("fourth request should be limited")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("other keys have their own bucket")
	}
}

func TestLimiter_Reset(t *testing.T) {
	l := New(1, time.Minute)

	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("expected limit")
	}
	l.Reset("k")
	if !l.Allow("k") {
		t.Error("expected fresh bucket after reset")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "192.0.2.1:1234", nil, "192.0.2.1"},
		{"no port", "192.0.2.1", nil, "192.0.2.1"},
		{"forwarded", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"real ip", "10.0.0.1:1", map[string]string{"X-Real-IP": " 203.0.113.8 "}, "203.0.113.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter_EmailLimit(t *testing.T) {
	ll := NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(r, "Cliente@Example.com"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, reason := ll.Check(r, "cliente@example.com ")
	if ok || reason == "" {
		t.Error("third attempt for the same (normalized) email should be blocked with a reason")
	}

	ll.ResetEmail("CLIENTE@example.com")
	if ok, _ := ll.Check(r, "cliente@example.com"); !ok {
		t.Error("expected reset to clear the email bucket")
	}
}

func entryCount(l *Limiter) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func TestLimiter_NoCleanupUntilStarted(t *testing.T) {
	l := New(1, time.Millisecond)
	l.Allow("k")

	time.Sleep(20 * time.Millisecond)
	if n := entryCount(l); n != 1 {
		t.Fatalf("entries = %d, want 1 (nothing should prune an unstarted limiter)", n)
	}
}

func TestLimiter_StartPrunesUntilContextDone(t *testing.T) {
	l := New(1, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	l.Start(ctx) // second call is a no-op

	l.Allow("k")
	deadline := time.Now().Add(2 * time.Second)
	for entryCount(l) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := entryCount(l); n != 0 {
		t.Fatalf("entries = %d, want idle bucket pruned", n)
	}

	cancel()
	time.Sleep(20 * time.Millisecond)
	l.Allow("k")
	time.Sleep(40 * time.Millisecond)
	if n := entryCount(l); n != 1 {
		t.Errorf("entries = %d, want 1 after the context ended cleanup", n)
	}
}
