package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"budget/internal/services"
	appweb "budget/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	svc         *services.BudgetService
	rateLimiter *rateLimiter
	clients     *clientResolver
	metrics     *securityMetrics
	ready       func(ctx context.Context) error

	shutdownOnce sync.Once
}

type config struct {
	rateLimit      int
	trustedProxies []string
	ready          func(ctx context.Context) error
}

type Option func(*config)

// WithRateLimit sets how many mutating requests a client may send per minute.
func WithRateLimit(n int) Option {
	return func(c *config) { c.rateLimit = n }
}

// WithTrustedProxies replaces the networks allowed to set X-Forwarded-For.
func WithTrustedProxies(cidrs ...string) Option {
	return func(c *config) { c.trustedProxies = cidrs }
}

// WithReadyCheck makes /readyz report the result of check.
func WithReadyCheck(check func(ctx context.Context) error) Option {
	return func(c *config) { c.ready = check }
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc *services.BudgetService, opts ...Option) *Server {
	cfg := config{rateLimit: defaultRateLimit, trustedProxies: DefaultTrustedProxies}
	for _, opt := range opts {
		opt(&cfg)
	}

	clients, err := newClientResolver(cfg.trustedProxies)
	if err != nil {
		slog.Warn("Ignoring trusted proxies, using defaults", "error", err)
		clients, _ = newClientResolver(DefaultTrustedProxies)
	}

	r := chi.NewRouter()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		svc:         svc,
		rateLimiter: newRateLimiter(cfg.rateLimit),
		clients:     clients,
		metrics:     &securityMetrics{},
		ready:       cfg.ready,
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
		t = nil
	}
	s.templates = t

	r.Use(middleware.Recoverer)
	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.withSecurityHeaders)
		r.Use(middleware.CleanPath)

		// Static assets (served from embedded FS)
		if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
			static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
			r.Handle("/static/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Cache-Control", "public, max-age=3600")
				static.ServeHTTP(w, r)
			}))
		} else {
			slog.Warn("Failed to mount embedded static FS", "error", err)
		}

		r.Get("/", s.handleIndex)
		r.Get("/months/{month}", s.handleMonthPage)
		r.Get("/months/{month}/print", s.handlePrintPage)

		r.Route("/api", s.apiRoutes)
	})

	return s
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Get("/state", s.handleGetState)
	r.Put("/active-month", s.handleSetActiveMonth)
	r.Get("/export", s.handleExport)
	r.Post("/import", s.handleImport)
	r.Get("/due", s.handleResolveDue)

	r.Route("/months/{month}", func(r chi.Router) {
		r.Get("/", s.handleGetMonth)
		r.Put("/notes", s.handleSetNotes)
		r.Post("/clear", s.handleClearMonth)
		r.Post("/copy", s.handleCopyMonth)

		r.Post("/incomes", s.handleAddIncome)
		r.Patch("/incomes/{id}", s.handleUpdateIncome)
		r.Delete("/incomes/{id}", s.handleDeleteIncome)
		r.Post("/incomes/{id}/move", s.handleMoveIncome)

		r.Post("/groups", s.handleAddGroup)
		r.Patch("/groups/{id}", s.handleRenameGroup)
		r.Delete("/groups/{id}", s.handleDeleteGroup)
		r.Post("/groups/{id}/move", s.handleMoveGroup)

		r.Post("/expenses", s.handleAddExpense)
		r.Patch("/expenses/{id}", s.handleUpdateExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)
		r.Post("/expenses/{id}/toggle-paid", s.handleTogglePaid)
		r.Post("/expenses/{id}/move", s.handleMoveExpense)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
