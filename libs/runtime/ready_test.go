package runtime

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyz_ReportsFailures(t *testing.T) {
	mux := NewBaseMux(
		ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }},
		ReadyCheck{Name: "kafka", Check: func(context.Context) error { return errors.New("no brokers") }},
		ReadyCheck{Name: "skipped"},
	)

	rw := httptest.NewRecorder()
	mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if body := rw.Body.String(); body != "kafka: no brokers" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestReadyz_OK(t *testing.T) {
	mux := NewBaseMux()
	for _, path := range []string{"/healthz", "/readyz"} {
		rw := httptest.NewRecorder()
		mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, path, nil))
		if rw.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rw.Code)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "svc", "warn")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"service":"svc"`) || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected log output: %s", out)
	}
	if ParseLevel("bogus") != slog.LevelInfo {
		t.Fatalf("unknown level should fall back to info")
	}
}
