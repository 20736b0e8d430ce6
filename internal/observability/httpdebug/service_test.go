package httpdebug

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"motivator/internal/schedule"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type ticks struct{ rep *schedule.TickReport }

func (t ticks) LastTick() *schedule.TickReport { return t.rep }

func get(t *testing.T, h http.Handler, target, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	ok := Handler(Config{}, Sources{Store: pinger{}})
	if rec := get(t, ok, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthy: %d %q", rec.Code, rec.Body.String())
	}
	down := Handler(Config{}, Sources{Store: pinger{err: errors.New("locked")}})
	if rec := get(t, down, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: %d", rec.Code)
	}
}

func TestLastTick(t *testing.T) {
	t.Parallel()
	src := &ticks{}
	h := Handler(Config{}, Sources{Ticks: src})
	if rec := get(t, h, "/debug/last-tick", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("before first tick: %d", rec.Code)
	}

	src.rep = &schedule.TickReport{ID: "abc", At: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC), Users: 2, Sent: 1}
	rec := get(t, h, "/debug/last-tick", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var got schedule.TickReport
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "abc" || got.Users != 2 || got.Sent != 1 {
		t.Fatalf("report=%+v", got)
	}
}

func TestTokenRequired(t *testing.T) {
	t.Parallel()
	h := Handler(Config{Token: "s3cret"}, Sources{})
	tests := []struct {
		name   string
		target string
		bearer string
		code   int
	}{
		{"missing", "/healthz", "", http.StatusUnauthorized},
		{"wrong bearer", "/healthz", "nope", http.StatusUnauthorized},
		{"bearer", "/healthz", "s3cret", http.StatusOK},
		{"query", "/healthz?token=s3cret", "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if rec := get(t, h, tc.target, tc.bearer); rec.Code != tc.code {
				t.Fatalf("code=%d want %d", rec.Code, tc.code)
			}
		})
	}
}

func TestPprofOptIn(t *testing.T) {
	t.Parallel()
	if rec := get(t, Handler(Config{}, Sources{}), "/debug/pprof/", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("pprof served while disabled: %d", rec.Code)
	}
	if rec := get(t, Handler(Config{Pprof: true}, Sources{}), "/debug/pprof/", ""); rec.Code != http.StatusOK {
		t.Fatalf("pprof index: %d", rec.Code)
	}
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	for addr, want := range map[string]bool{
		"127.0.0.1:6060": true,
		"localhost:1":    true,
		"[::1]:6060":     true,
		":6060":          false,
		"0.0.0.0:6060":   false,
		"10.0.0.5:6060":  false,
		"garbage":        false,
	} {
		if got := isLoopbackAddr(addr); got != want {
			t.Fatalf("%s: got %v want %v", addr, got, want)
		}
	}
}
