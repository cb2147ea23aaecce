package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		deps     map[string]Pinger
		wantCode int
	}{
		{"no dependencies", map[string]Pinger{}, http.StatusOK},
		{"all healthy", map[string]Pinger{
			"redis": PingFunc(func(context.Context) error { return nil }),
		}, http.StatusOK},
		{"one down", map[string]Pinger{
			"redis":   PingFunc(func(context.Context) error { return nil }),
			"mongodb": PingFunc(func(context.Context) error { return errors.New("no reachable servers") }),
		}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

			if err := NewHealthHandler(tt.deps).Readiness(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body)
			}
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	e := newEcho()
	rec := httptest.NewRecorder()
	_ = NewHealthHandler(nil).Liveness(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
