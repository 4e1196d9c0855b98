package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quangvo/agripos/internal/health"
)

func doRequest(t *testing.T, h *health.Handler, path string) (*http.Response, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, body
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{
		Name:  "backend",
		Check: func(context.Context) error { return errors.New("down") },
	})

	resp, body := doRequest(t, h, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestReadyz_AllChecksPass(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "backend", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "database", Check: func(context.Context) error { return nil }},
	)

	resp, body := doRequest(t, h, "/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	checks, _ := body["checks"].(map[string]any)
	if checks["backend"] != "ok" || checks["database"] != "ok" {
		t.Errorf("checks: %v", checks)
	}
}

func TestReadyz_FailingCheck(t *testing.T) {
	t.Parallel()

	h := health.New(
		health.Checker{Name: "backend", Check: func(context.Context) error { return nil }},
		health.Checker{Name: "database", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	resp, body := doRequest(t, h, "/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", resp.StatusCode)
	}
	if body["status"] != "fail" {
		t.Errorf("status field: %v", body["status"])
	}
	checks, _ := body["checks"].(map[string]any)
	if checks["backend"] != "ok" {
		t.Errorf("backend check: %v", checks["backend"])
	}
	if checks["database"] != "connection refused" {
		t.Errorf("database check: %v", checks["database"])
	}
}

func TestReadyz_NoCheckers(t *testing.T) {
	t.Parallel()

	resp, body := doRequest(t, health.New(), "/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("body: %v", body)
	}
}

func TestReadyz_CheckReceivesContext(t *testing.T) {
	t.Parallel()

	h := health.New(health.Checker{
		Name: "slow",
		Check: func(ctx context.Context) error {
			if ctx == nil {
				return errors.New("nil context")
			}
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		},
	})

	resp, _ := doRequest(t, h, "/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}
