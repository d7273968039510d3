package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"finboard/internal/session"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady checks the templates and that the finance backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if len(s.pages) != len(pageFiles) {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.api.Ping(ctx); err != nil {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	if p, ok := s.sessions.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			checks["sessions"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["sessions"] = "ok"
		}
	}

	checks["cache"] = map[string]any{
		"dashboard_entries": s.dashboardCache.Size(),
		"category_entries":  s.categoryCache.Size(),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}
	checks["mirror"] = "disabled"
	if s.publisher != nil {
		checks["mirror"] = "enabled"
	}

	s.writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	dashHits, dashMisses := s.dashboardCache.Stats()
	catHits, catMisses := s.categoryCache.Stats()

	w.WriteHeader(http.StatusOK)

	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_response_time_avg_us", "Average response time in microseconds", "gauge", traceMetrics.AverageResponseTime)
	metric("transactions_mutated_total", "Transactions created, updated or deleted through the dashboard", "counter", s.appMetrics.transactions.Load())
	metric("backend_errors_total", "Failed calls to the finance backend", "counter", s.appMetrics.apiErrors.Load())
	metric("sessions_ended_total", "Sessions ended by logout or backend rejection", "counter", s.appMetrics.sessionsEnded.Load())
	metric("mirror_events_published_total", "Transaction events published for mirroring", "counter", s.appMetrics.eventsPublished.Load())
	metric("mirror_events_failed_total", "Transaction events that could not be published", "counter", s.appMetrics.eventsFailed.Load())

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n# TYPE cache_hits_total counter\n")
	fmt.Fprintf(w, "cache_hits_total{cache=\"dashboard\"} %d\n", dashHits)
	fmt.Fprintf(w, "cache_hits_total{cache=\"categories\"} %d\n\n", catHits)
	fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n# TYPE cache_misses_total counter\n")
	fmt.Fprintf(w, "cache_misses_total{cache=\"dashboard\"} %d\n", dashMisses)
	fmt.Fprintf(w, "cache_misses_total{cache=\"categories\"} %d\n\n", catMisses)
	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{cache=\"dashboard\"} %d\n", s.dashboardCache.Size())
	fmt.Fprintf(w, "cache_entries{cache=\"categories\"} %d\n\n", s.categoryCache.Size())

	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "Total suspicious requests detected", "counter", securityMetrics.SuspiciousRequests)
	metric("cross_origin_blocked_total", "State-changing requests rejected for their origin", "counter", securityMetrics.CrossOriginBlocked)
	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n# TYPE uptime_seconds gauge\nuptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "landing.html", s.newPage(r, "Personal finance", "landing"))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		NotFoundError("Not found").Write(w)
		return
	}
	p := s.newPage(r, "Not found", "")
	p.Data = errorView{Code: http.StatusNotFound, Message: "The page you are looking for does not exist."}
	s.render(w, r, http.StatusNotFound, "error.html", p)
}

// errorView is the body of error.html.
type errorView struct {
	Code    int
	Message string
	// Back is where the "go back" link points; empty means the dashboard.
	Back string
}
