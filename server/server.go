package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/craftyxhub/craftyx-portal/auth"
	"github.com/craftyxhub/craftyx-portal/content"
	"github.com/craftyxhub/craftyx-portal/guard"
	"github.com/craftyxhub/craftyx-portal/internal/config"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	formatter *content.Formatter
	validate  *validator.Validate
	scheduler *cron.Cron

	// ready is set once Start has bootstrapped the system. Guarded routes answer
	// 503 until then.
	ready atomic.Bool
}

type Option func(*Server)

func WithFormatter(f *content.Formatter) Option {
	return func(s *Server) {
		s.formatter = f
	}
}

func New(cfg config.Config, authService *auth.Service, options ...Option) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		auth:      authService,
		formatter: content.NewFormatter(),
		validate:  validator.New(),
		scheduler: cron.New(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

// Start bootstraps the admin account, schedules the session sweep and marks the
// server ready. It returns the generated admin password when one was created.
func (s *Server) Start(ctx context.Context) (generatedPassword string, err error) {
	generatedPassword, err = s.InitialiseSystem(ctx)
	if err != nil {
		return "", fmt.Errorf("[Server Start] failed to initialise the system: %w", err)
	}
	if err := s.scheduleSessionSweep(); err != nil {
		return "", fmt.Errorf("[Server Start] %w", err)
	}
	s.scheduler.Start()
	s.ready.Store(true)
	log.Info().Msg("server ready")
	return generatedPassword, nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Server) Stop(ctx context.Context) {
	stopped := s.scheduler.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
}

func (s *Server) Ready() bool {
	return s.ready.Load()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Debug().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			log.Debug().Str("path", parts[0]).Msg("route")
		}
	}
}

// pageGuard builds the guard for a page requiring role.
func pageGuard(role users.Role) guard.Guard {
	return guard.RequireRole(role,
		guard.WithLoginPath(RouteLogin),
		guard.WithOTPPath(RouteOTP),
		guard.WithLandingPath(RouteDashboard),
	)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
