// Package http exposes the sync engine as a small JSON API.
package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/middleware/trace"
	"gastos/internal/services"
)

// Engine is the slice of the sync engine the API drives.
type Engine interface {
	Snapshot() services.State
	Watch(ctx context.Context) <-chan services.State
	AddExpense(ctx context.Context, amount decimal.Decimal, description, photoRef string) (core.Expense, services.Result, error)
	ShareExpense(ctx context.Context, exp core.Expense, friendEmail string) (core.Expense, services.Result, error)
	DeleteExpense(ctx context.Context, exp core.Expense) (services.Result, error)
	PullRemote(ctx context.Context) (int, services.Result, error)
	SignIn(ctx context.Context) services.Result
	SignOut(ctx context.Context) (services.Result, error)
}

type Config struct {
	Addr string
	// UploadDir receives photos posted as multipart files. Empty disables uploads.
	UploadDir string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Ready backs /readyz when set.
	Ready func(ctx context.Context) error
	// PhotoDir is served read-only under PhotoPath when both are set.
	PhotoDir  string
	PhotoPath string
	Logger    *applog.Logger
}

type Server struct {
	http.Server
	engine    Engine
	uploadDir string
	ready     func(ctx context.Context) error
	log       *applog.Logger
	trace     *trace.Middleware
	started   time.Time

	// closing is cancelled when Shutdown starts and ends open state streams.
	closing      context.Context
	closeStreams context.CancelFunc
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(engine Engine, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}

	closing, closeStreams := context.WithCancel(context.Background())
	s := &Server{
		closing:      closing,
		closeStreams: closeStreams,
		engine:       engine,
		uploadDir:    cfg.UploadDir,
		ready:        cfg.Ready,
		log:          logger,
		trace:        trace.NewMiddleware(logger.WithComponent(applog.ComponentTrace)),
		started:      time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.trace.Middleware)
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.PhotoDir != "" && cfg.PhotoPath != "" {
		prefix := "/" + strings.Trim(cfg.PhotoPath, "/") + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.PhotoDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/state/stream", s.handleStateStream)
		r.Post("/expenses", s.handleAddExpense)
		r.Post("/expenses/{id}/share", s.handleShareExpense)
		r.Delete("/expenses/{id}", s.handleDeleteExpense)
		r.Post("/sync", s.handleSync)
		r.Post("/session/signin", s.handleSignIn)
		r.Post("/session/signout", s.handleSignOut)
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Server.RegisterOnShutdown(closeStreams)
	return s
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server. Open state streams are ended first so
// they do not hold the shutdown until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.InfoContext(ctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
	s.closeStreams()
	return s.Server.Shutdown(ctx)
}

// RequestStats returns the trace middleware counters.
func (s *Server) RequestStats() trace.Metrics {
	return s.trace.GetMetrics()
}
