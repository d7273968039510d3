package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/api"
	"finboard/internal/cache"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/session"
	appweb "finboard/web"
)

// Publisher sends transaction mirror events. *amqp.Client satisfies it.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// Options configures NewServer. API and Sessions are required.
type Options struct {
	Addr               string
	API                *api.Client
	Sessions           session.Store
	Publisher          Publisher
	Logger             *applog.Logger
	SessionTTL         time.Duration
	CookieSecure       bool
	CacheTTL           time.Duration
	RateLimitPerMinute int
}

// dashboardView is everything the dashboard page shows, cached per session.
type dashboardView struct {
	Summary       core.TransactionSummary
	TopCategories []core.CategoryTotal
	Recent        []core.Transaction
	MonthLabel    string
}

type Server struct {
	http.Server
	api       *api.Client
	sessions  session.Store
	publisher Publisher

	logger           *applog.Logger
	structuredLogger *applog.StructuredLogger

	pages map[string]*template.Template

	sessionTTL   time.Duration
	cookieSecure bool

	// Per-session caches; keys are prefixed with "<session id>:".
	dashboardCache *cache.LRUCache[dashboardView]
	categoryCache  *cache.LRUCache[[]core.Category]
	cacheManager   *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
	now          func() time.Time
}

type appMetrics struct {
	uptime          time.Time
	transactions    atomic.Int64
	apiErrors       atomic.Int64
	sessionsEnded   atomic.Int64
	eventsPublished atomic.Int64
	eventsFailed    atomic.Int64
}

// publishTimeout bounds a mirror publish made on behalf of a request.
const publishTimeout = 3 * time.Second

// pageFiles are the templates rendered inside layout.html.
var pageFiles = []string{
	"landing.html",
	"login.html",
	"register.html",
	"dashboard.html",
	"transactions.html",
	"transaction_form.html",
	"categories.html",
	"analytics.html",
	"profile.html",
	"settings.html",
	"error.html",
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.API == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("api client and session store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}

	pages, err := parsePages(appweb.TemplatesFS)
	if err != nil {
		return nil, err
	}

	s := &Server{
		api:              opts.API,
		sessions:         opts.Sessions,
		publisher:        opts.Publisher,
		logger:           logger,
		structuredLogger: applog.NewStructuredLogger(logger),
		pages:            pages,
		sessionTTL:       opts.SessionTTL,
		cookieSecure:     opts.CookieSecure,
		dashboardCache:   cache.NewLRUCache[dashboardView](500, opts.CacheTTL),
		categoryCache:    cache.NewLRUCache[[]core.Category](1000, opts.CacheTTL),
		cacheManager:     cache.NewManager(logger.WithComponent(applog.ComponentCache)),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
		now:              time.Now,
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger.WithComponent(applog.ComponentTrace))

	s.cacheManager.Register("dashboard", s.dashboardCache)
	s.cacheManager.Register("categories", s.categoryCache)
	s.cacheManager.Register("sessions", cache.CleanerFunc(func() int {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n, err := s.sessions.DeleteExpired(ctx)
		if err != nil {
			s.logger.Warn("Session sweep failed", applog.FieldError, err)
		}
		return n
	}))
	s.cacheManager.StartCleanup(10 * time.Minute)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// parsePages builds one template set per page: the layout, the shared
// partials and the page itself.
func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(fsys,
			"templates/layout.html", "templates/partials.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.withSession(s.handleLanding))
	mux.HandleFunc("GET /auth/login", s.withSession(s.handleLoginPage))
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/register", s.withSession(s.handleRegisterPage))
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	mux.HandleFunc("GET /dashboard", s.requireAuth(s.handleDashboard))
	mux.HandleFunc("GET /dashboard/transactions", s.requireAuth(s.handleTransactions))
	mux.HandleFunc("GET /dashboard/transactions/new", s.requireAuth(s.handleNewTransactionPage))
	mux.HandleFunc("POST /dashboard/transactions/new", s.requireAuth(s.handleCreateTransaction))
	mux.HandleFunc("GET /dashboard/transactions/{id}/edit", s.requireAuth(s.handleEditTransactionPage))
	mux.HandleFunc("POST /dashboard/transactions/{id}/edit", s.requireAuth(s.handleUpdateTransaction))
	mux.HandleFunc("POST /dashboard/transactions/{id}/delete", s.requireAuth(s.handleDeleteTransaction))

	mux.HandleFunc("GET /dashboard/categories", s.requireAuth(s.handleCategories))
	mux.HandleFunc("POST /dashboard/categories", s.requireAuth(s.handleCreateCategory))
	mux.HandleFunc("POST /dashboard/categories/defaults", s.requireAuth(s.handleDefaultCategories))
	mux.HandleFunc("POST /dashboard/categories/{id}", s.requireAuth(s.handleUpdateCategory))
	mux.HandleFunc("POST /dashboard/categories/{id}/delete", s.requireAuth(s.handleDeleteCategory))

	mux.HandleFunc("GET /dashboard/analytics", s.requireAuth(s.handleAnalytics))
	mux.HandleFunc("GET /ui/analytics/trends", s.requireAuthJSON(s.handleTrendsJSON))
	mux.HandleFunc("GET /ui/dashboard/summary", s.requireAuth(s.handleSummaryPartial))

	mux.HandleFunc("GET /dashboard/profile", s.requireAuth(s.handleProfile))
	mux.HandleFunc("POST /dashboard/profile", s.requireAuth(s.handleUpdateProfile))
	mux.HandleFunc("POST /dashboard/profile/avatar", s.requireAuth(s.handleAvatarUpload))

	mux.HandleFunc("GET /dashboard/settings", s.requireAuth(s.handleSettings))
	mux.HandleFunc("GET /dashboard/settings/export.csv", s.requireAuth(s.handleExportCSV))
	mux.HandleFunc("POST /dashboard/settings/password", s.requireAuth(s.handleChangePassword))
	mux.HandleFunc("POST /dashboard/settings/delete-account", s.requireAuth(s.handleDeleteAccount))

	mux.HandleFunc("/", s.handleNotFound)

	var h http.Handler = mux
	h = s.securityDetector.SameOrigin(s.handleCrossOrigin)(h)
	h = s.postRateLimit(h)
	h = s.logSuspicious(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.Middleware(s.logger)(h)
	h = s.traceMiddleware.Middleware(h)
	return h
}

// postRateLimit applies the limiter to mutations only; page views and
// static assets are not counted.
func (s *Server) postRateLimit(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request",
				applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"),
				applog.FieldRequestID, trace.GetRequestID(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	const msg = "Too many requests. Please wait a moment and try again."
	if isHTMX(r) {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			TriggerErrorNotification(msg).
			Write(w)
		return
	}
	http.Error(w, msg, http.StatusTooManyRequests)
}

func (s *Server) handleCrossOrigin(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Cross-origin request rejected",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path,
		"origin", r.Header.Get("Origin"))
	http.Error(w, "Cross-origin request rejected", http.StatusForbidden)
}

// invalidate drops every cached read of the session after a mutation.
func (s *Server) invalidate(sessionID string) {
	prefix := sessionID + ":"
	s.dashboardCache.DeletePrefix(prefix)
	s.categoryCache.DeletePrefix(prefix)
}

// Shutdown stops the background sweeps and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
