package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

type middleware = func(http.HandlerFunc) http.HandlerFunc

// ChainMiddleware wraps routeFunction so the first middleware runs outermost.
func ChainMiddleware(routeFunction http.HandlerFunc, mw ...middleware) http.HandlerFunc {
	chainedHandler := routeFunction
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// HTMLMiddleWare is the stack for browser pages. Guards go last so they see a
// recovered, logged request.
func (s *Server) HTMLMiddleWare(mw ...middleware) []middleware {
	return append([]middleware{
		s.WWWRedirectMiddleware,
		s.RequestIDMiddleware,
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.FrameSecurityMiddleware,
	}, mw...)
}

// APIMiddleware is the stack for JSON endpoints.
func (s *Server) APIMiddleware(mw ...middleware) []middleware {
	return append([]middleware{
		s.RequestIDMiddleware,
		s.LoggingMiddleware,
		s.RecoverMiddleware,
		s.CorsMiddleware,
	}, mw...)
}

func (s *Server) WWWRedirectMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, found := strings.CutPrefix(r.Host, "www.")
		if !found {
			next(w, r)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("%s://%s%s", getScheme(r), host, r.RequestURI), http.StatusMovedPermanently)
	}
}

// RequestIDMiddleware keeps a caller supplied X-Request-ID or assigns a new one,
// and echoes it on the response.
func (s *Server) RequestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware logs every request at debug level. Outside DEV, only
// responses of 500 and above are logged, at warn.
func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)

		event := log.Debug()
		if rec.status >= http.StatusInternalServerError {
			event = log.Warn()
		} else if s.env != "DEV" {
			return
		}
		event.
			Str("request_id", r.Header.Get(requestIDHeader)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) FrameSecurityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error().
				Interface("panic", rec).
				Str("request_id", r.Header.Get(requestIDHeader)).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			writeJSONError(w, "server_error", "internal error", http.StatusInternalServerError)
		}()
		next(w, r)
	}
}

// CorsMiddleware answers preflights itself with 204. Disallowed origins get no
// CORS headers and the browser blocks the request.
func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next(w, r)
			return
		}

		preflight := r.Method == http.MethodOptions
		if allowed := s.corsOrigin(origin); allowed != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Add("Vary", "Origin")
			if allowed != "*" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if preflight {
				h.Set("Access-Control-Allow-Methods", s.config.GetAllowedMethods())
				h.Set("Access-Control-Allow-Headers", s.config.GetAllowedHeaders())
				h.Set("Access-Control-Max-Age", "86400")
			}
		}

		if preflight {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// corsOrigin is the Allow-Origin value for origin, or "" when it is not allowed.
// Credentials are never combined with the wildcard.
func (s *Server) corsOrigin(origin string) string {
	allowed := s.config.GetAllowedOrigins()
	switch {
	case allowed.IsAllowedOrigin(origin):
		return origin
	case allowed.IsAllowedOrigin("*"):
		return "*"
	default:
		return ""
	}
}
