// Package server exposes the advisor over HTTP for the web frontend.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/logger"
	"github.com/spigell/freelance-advisor/internal/metrics"
	"github.com/spigell/freelance-advisor/internal/record"
)

const (
	DefaultAddr            = "127.0.0.1:8002"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	Addr            string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	AllowedOrigins  []string      `mapstructure:"allowed-origins"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" validate:"gte=0"`
}

// Answerer turns a chat message into the assistant reply. *orchestrator.Orchestrator
// implements it.
type Answerer interface {
	Process(ctx context.Context, query, userID string) (string, error)
}

// JobSource lists the current jobs. *cache.Cache implements it.
type JobSource interface {
	GetOrFetch(ctx context.Context, resource string) ([]record.Record, error)
}

type Server struct {
	cfg      Config
	name     string
	answerer Answerer
	jobs     JobSource
	validate *validator.Validate
	now      func() time.Time

	logger  *zap.Logger
	metrics *metrics.Collector
}

func New(cfg Config, name string, answerer Answerer, jobs JobSource, log *zap.Logger, m *metrics.Collector) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	return &Server{
		cfg:      cfg,
		name:     name,
		answerer: answerer,
		jobs:     jobs,
		validate: validator.New(),
		now:      time.Now,
		logger:   logger.WithFields(log, zap.String("component", "http")),
		metrics:  m,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/jobs", s.handleJobs)
	r.Post("/api/chat", s.handleChat)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
