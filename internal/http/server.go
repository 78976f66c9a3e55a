package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/session"
	appweb "fintrack/web"
)

// Session is what the pages need from the session service.
type Session interface {
	Authenticated() bool
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, email, password, fullName string) error
	Logout(ctx context.Context)
	Claims(ctx context.Context) (session.Claims, error)
}

// Dashboard is what the dashboard page needs from its controller.
type Dashboard interface {
	Load(ctx context.Context) (*dashboard.State, error)
	Add(ctx context.Context, draft core.Draft) (*dashboard.State, core.Draft, error)
	Delete(ctx context.Context, id int64) (*dashboard.State, error)
	NewDraft() core.Draft
}

// ReadinessCheck checks a dependency for /readyz.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	http.Server
	templates *template.Template
	session   Session
	dashboard Dashboard
	logger    *applog.Logger

	detector    *security.Detector
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter
	readiness   map[string]ReadinessCheck
	startedAt   time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithLoginRateLimit throttles login and register submissions per client.
func WithLoginRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.rateLimiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: perMinute,
			Methods:           []string{http.MethodPost},
		})
	}
}

// WithReadinessCheck adds a named check to /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) { s.readiness[name] = check }
}

func WithLogger(logger *applog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, sess Session, dash Dashboard, opts ...Option) *Server {
	s := &Server{
		session:   sess,
		dashboard: dash,
		detector:  security.NewDetector(),
		readiness: make(map[string]ReadinessCheck),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentHTTP)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	page := security.NoStore
	guest := func(h http.HandlerFunc) http.Handler { return page(s.redirectIfAuthenticated(h)) }
	member := func(h http.HandlerFunc) http.Handler { return page(s.requireAuth(h)) }

	mux.Handle("GET /login", guest(s.handleLoginPage))
	mux.Handle("POST /login", s.throttle(guest(s.handleLogin)))
	mux.Handle("GET /register", guest(s.handleRegisterPage))
	mux.Handle("POST /register", s.throttle(guest(s.handleRegister)))
	mux.Handle("POST /logout", page(http.HandlerFunc(s.handleLogout)))

	mux.Handle("GET /dashboard", member(s.handleDashboard))
	mux.Handle("POST /transactions", member(s.handleCreateTransaction))
	mux.Handle("POST /transactions/{id}/delete", member(s.handleDeleteTransaction))

	mux.HandleFunc("/", s.handleFallback)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(security.SameOrigin(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) throttle(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	return s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.renderRateLimited)(next)
}

// Shutdown stops background helpers and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"error", err, "template", name, applog.FieldComponent, applog.ComponentTemplate)
	}
}
