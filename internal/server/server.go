// Package server is the browser UI: upload a CSV, then explore statistics,
// correlations and category counts. Each browser session holds its own
// dataset; every view is recomputed from it on request.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/csvlens/internal/analysis"
	"github.com/KaramelBytes/csvlens/internal/config"
	"github.com/KaramelBytes/csvlens/internal/logging"
	"github.com/KaramelBytes/csvlens/internal/metrics"
	"github.com/KaramelBytes/csvlens/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server wires routes, sessions and metrics together.
type Server struct {
	cfg       *config.Global
	router    *chi.Mux
	sessions  *Sessions
	metrics   *metrics.Metrics
	templates *template.Template
	log       *slog.Logger
}

// New builds a server from cfg. A nil m gets a fresh metrics registry.
func New(cfg *config.Global, m *metrics.Metrics) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.New()
	}
	funcs := template.FuncMap{
		"num": func(v float64) string {
			if math.IsNaN(v) {
				return "n/a"
			}
			return fmt.Sprintf("%.3f", v)
		},
		"coef": analysis.FormatCoefficient,
		"heatColor": func(st analysis.Strength, negative bool) template.CSS {
			return template.CSS("background-color: " + render.StrengthColor(st, negative))
		},
		"join": strings.Join,
		"pct":  func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		sessions:  NewSessions(time.Duration(cfg.SessionTTLMin) * time.Minute),
		metrics:   m,
		templates: tmpl,
		log:       logging.WithComponent("server"),
	}
	s.sessions.OnEvict = func(n int) {
		s.log.Info("evicted idle sessions", "count", n)
		s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.Middleware)
}

func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Post("/upload", s.handleUpload)
	s.router.Post("/reset", s.handleReset)
	s.router.Get("/correlate", s.handleCorrelate)
	s.router.Get("/categories", s.handleCategories)
	s.router.Get("/distribution", s.handleDistribution)
	s.router.Get("/charts/{kind}.png", s.handleChart)

	// JSON API
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.apiDataset(s.apiSummary))
		r.Get("/describe", s.apiDataset(s.apiDescribe))
		r.Get("/correlate", s.apiDataset(s.apiCorrelate))
		r.Get("/matrix", s.apiDataset(s.apiMatrix))
		r.Get("/frequencies", s.apiDataset(s.apiFrequencies))
		r.Get("/scatter", s.apiDataset(s.apiScatter))
		r.Get("/histogram", s.apiDataset(s.apiHistogram))
		r.Get("/boxplot", s.apiDataset(s.apiBoxplot))
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", s.metrics.Handler())
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions exposes the session registry.
func (s *Server) Sessions() *Sessions { return s.sessions }

// Run serves on cfg.ListenAddr until ctx is cancelled, then shuts down
// gracefully. The session janitor runs for the lifetime of the server.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", "addr", s.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.sessions.Janitor(gctx, janitorInterval(s.sessions.ttl))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func janitorInterval(ttl time.Duration) time.Duration {
	iv := ttl / 4
	if iv < time.Second {
		iv = time.Second
	}
	if iv > time.Minute {
		iv = time.Minute
	}
	return iv
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
