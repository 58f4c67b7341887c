// Package web serves the review UI and its JSON API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/evalreview/internal/config"
	"github.com/JonMunkholm/evalreview/internal/core"
	"github.com/JonMunkholm/evalreview/internal/logging"
	mw "github.com/JonMunkholm/evalreview/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed static
var staticFiles embed.FS

// multipartOverhead is allowed on top of the file size limit for the
// multipart envelope and other form fields.
const multipartOverhead = 1 << 20

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck adds a named dependency to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// Server is the HTTP server for the review application.
type Server struct {
	ws     *core.Workspace
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
	checks map[string]HealthCheck

	pageLimiter   *rateLimiter
	uploadLimiter *rateLimiter
}

// NewServer wires routes and middleware around ws.
func NewServer(ws *core.Workspace, cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		ws:     ws,
		cfg:    cfg,
		router: chi.NewRouter(),
		checks: make(map[string]HealthCheck),
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Rate.Enabled {
		s.pageLimiter = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.uploadLimiter = newRateLimiter(cfg.Rate.UploadLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if t := s.cfg.Server.RequestTimeout; t > 0 {
		s.router.Use(middleware.Timeout(t))
	}
	s.router.Use(s.securityHeaders)
	s.router.Use(s.rateLimit(s.pageLimiter))
}

func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)

		// Pages
		r.Get("/", s.handleReview)
		r.With(s.rateLimit(s.uploadLimiter)).Post("/import", s.handleImport)
		r.Post("/cells/{rowID}/{field}/edit", s.handleBeginEdit)
		r.Post("/cells/draft", s.handleDraft)
		r.Post("/cells/commit", s.handleCommit)
		r.Get("/export/{format}", s.handleExport)
	})

	// JSON API. Auth runs before a session is created.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security))
		r.Use(s.withSession)

		r.Get("/dataset", s.handleAPIDataset)
		r.With(s.rateLimit(s.uploadLimiter)).Post("/import", s.handleAPIImport)
		r.Post("/edits", s.handleAPIEdit)
		r.Put("/bot-outputs", s.handleAPIBotOutputs)
		r.Get("/cursor", s.handleAPICursor)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// RunMaintenance sweeps rate limiter state until ctx is cancelled.
func (s *Server) RunMaintenance(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pageLimiter.prune()
			s.uploadLimiter.prune()
		}
	}
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds hardening headers to every response.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'")
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports liveness plus the state of each registered check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "check", name, "error", err)
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{
		"status":   "ok",
		"sessions": s.ws.Len(),
		"checks":   deps,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	writeJSONStatus(w, status, body)
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
