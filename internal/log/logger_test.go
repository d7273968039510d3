package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_JSONHandlerIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentSession,
		Handler:   NewHandler(&buf, "json", slog.LevelInfo),
	})

	logger.Info("session created", FieldSessionID, "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry[FieldComponent] != ComponentSession {
		t.Errorf("component = %v, want %s", entry[FieldComponent], ComponentSession)
	}
	if entry[FieldSessionID] != "abc" {
		t.Errorf("session_id = %v, want abc", entry[FieldSessionID])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: NewHandler(&buf, "text", slog.LevelWarn)})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestLogFields_Builders(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentHTTP).
		WithError(errors.New("boom")).
		WithError(nil).
		WithSession("sid", "").
		WithTransaction("", "Lunch", "expense", "12.50")

	if fields[FieldError] != "boom" {
		t.Errorf("error = %v, want boom", fields[FieldError])
	}
	if _, ok := fields[FieldUserID]; ok {
		t.Error("empty user id should not be recorded")
	}
	if _, ok := fields[FieldTransactionID]; ok {
		t.Error("empty transaction id should not be recorded")
	}
	if len(fields.ToSlice()) != len(fields)*2 {
		t.Errorf("ToSlice length = %d, want %d", len(fields.ToSlice()), len(fields)*2)
	}
}

func TestMiddleware_StoresLoggerInContext(t *testing.T) {
	logger := New(Config{Component: ComponentHTTP, Handler: NewHandler(&bytes.Buffer{}, "text", slog.LevelInfo)})

	var got *Logger
	handler := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != logger {
		t.Error("FromContext did not return the middleware logger")
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("FromContext without logger should fall back to the default logger")
	}
}
