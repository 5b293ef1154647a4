package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func pass(context.Context) error { return nil }

func failWith(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

// serve requests path through a mux carrying h and decodes the response.
func serve(t *testing.T, h *Handler, path string) (int, result) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, body
}

func TestHealthz(t *testing.T) {
	h := New(Checker{Name: "lavalink", Check: failWith("down")}).
		WithDetails(Detail{Name: "players", Value: func() any { return 1 }})

	code, body := serve(t, h, "/healthz")
	if code != http.StatusOK || body.Status != StatusOK {
		t.Errorf("healthz = %d %q, want 200 ok even with failing checks", code, body.Status)
	}
	if body.Checks != nil || body.Details != nil {
		t.Errorf("healthz should carry neither checks nor details: %+v", body)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "discord", Check: pass},
				{Name: "lavalink", Check: pass},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
			wantChecks: map[string]string{"discord": "ok", "lavalink": "ok"},
		},
		{
			name: "required fails",
			checkers: []Checker{
				{Name: "discord", Check: failWith("gateway not ready")},
				{Name: "lavalink", Check: pass},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantChecks: map[string]string{"discord": "fail: gateway not ready", "lavalink": "ok"},
		},
		{
			name: "optional fails",
			checkers: []Checker{
				{Name: "lavalink", Check: pass},
				{Name: "breakers", Check: failWith("open: eu"), Optional: true},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			wantChecks: map[string]string{"lavalink": "ok", "breakers": "degraded: open: eu"},
		},
		{
			name: "required and optional fail",
			checkers: []Checker{
				{Name: "lavalink", Check: failWith("no node connected")},
				{Name: "breakers", Check: failWith("open: eu"), Optional: true},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantChecks: map[string]string{"lavalink": "fail: no node connected", "breakers": "degraded: open: eu"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := serve(t, New(tt.checkers...), "/readyz")
			if code != tt.wantCode || body.Status != tt.wantStatus {
				t.Errorf("readyz = %d %q, want %d %q", code, body.Status, tt.wantCode, tt.wantStatus)
			}
			for name, want := range tt.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("check %s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyz_CancelledRequest(t *testing.T) {
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), context.Canceled.Error()) {
		t.Errorf("body %s does not name the cancellation", rec.Body.String())
	}
}

func TestReadyz_ChecksRunConcurrently(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	block := func(context.Context) error {
		started <- struct{}{}
		<-release
		return nil
	}
	h := New(
		Checker{Name: "discord", Check: block},
		Checker{Name: "lavalink", Check: block},
	)

	done := make(chan struct{})
	rec := httptest.NewRecorder()
	go func() {
		defer close(done)
		h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	}()

	for range 2 {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatal("checks did not run concurrently")
		}
	}
	close(release)
	<-done

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz_Details(t *testing.T) {
	h := New(Checker{Name: "lavalink", Check: pass}).WithDetails(
		Detail{Name: "players", Value: func() any { return 3 }},
		Detail{Name: "breakers", Value: func() any { return map[string]string{"eu": "closed"} }},
	)

	_, body := serve(t, h, "/readyz")
	// JSON numbers decode as float64.
	if got := body.Details["players"]; got != float64(3) {
		t.Errorf("players detail = %v, want 3", got)
	}
	breakers, ok := body.Details["breakers"].(map[string]any)
	if !ok || breakers["eu"] != "closed" {
		t.Errorf("breakers detail = %v", body.Details["breakers"])
	}
}
