package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	applog "finboard/internal/log"
)

func TestMiddleware_AssignsRequestIDAndCountsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Component: applog.ComponentHTTP, Handler: applog.NewHandler(&buf, "text", slog.LevelInfo)})
	mw := NewMiddleware(func(r *http.Request) string { return "203.0.113.7" }, logger)

	var seenID string
	var seenLogger *applog.Logger
	h := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	if _, err := uuid.Parse(seenID); err != nil {
		t.Errorf("request id %q is not a uuid", seenID)
	}
	if rec.Header().Get(HeaderRequestID) != seenID {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seenID)
	}
	if seenLogger == nil || seenLogger.Component() != applog.ComponentHTTP {
		t.Error("handler should get the request logger from context")
	}

	metrics := mw.GetMetrics()
	if metrics.TotalRequests != 1 || metrics.ServerErrors != 1 {
		t.Errorf("metrics = %+v, want 1 request and 1 server error", metrics)
	}

	out := buf.String()
	if !strings.Contains(out, "HTTP request completed") || !strings.Contains(out, "203.0.113.7") {
		t.Errorf("log output missing completion line: %s", out)
	}
}

func TestMiddleware_KeepsValidIncomingRequestID(t *testing.T) {
	mw := NewMiddleware(nil, nil)
	incoming := uuid.NewString()

	var seen string
	h := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != incoming {
		t.Errorf("request id = %q, want %q", seen, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "<script>" {
		t.Error("invalid incoming request id must be replaced")
	}
}
