package server

import (
	"net/http"

	"github.com/craftyxhub/craftyx-portal/guard"
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/rs/zerolog/log"
)

// authState resolves the request's AuthState: a state already placed on the context
// wins, then the session cookie, then a bearer token. Before Start completes every
// request is still loading.
func (s *Server) authState(r *http.Request) sessions.AuthState {
	if state, ok := sessions.StateFromContext(r.Context()); ok {
		return state
	}
	if !s.ready.Load() {
		return sessions.LoadingState()
	}
	if id := sessionIDFromCookie(r); id != "" {
		if state := s.auth.Resolve(r.Context(), id); state.Session != nil {
			return state
		}
	}
	if raw := bearerToken(r); raw != "" {
		return s.auth.ResolveToken(r.Context(), raw)
	}
	return sessions.AuthState{}
}

// RequirePage guards an HTML page. Redirect decisions become 303 See Other so the
// browser replaces the guarded entry with the target.
func (s *Server) RequirePage(g guard.Guard) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			state := s.authState(r)
			decision := g.Evaluate(state, r.URL.RequestURI())

			switch decision.Kind {
			case guard.Authorized:
				next(w, r.WithContext(sessions.WithState(r.Context(), state)))
			case guard.Pending:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Service starting, retry shortly", http.StatusServiceUnavailable)
			case guard.Redirect:
				if decision.Path == r.URL.Path {
					// Redirecting to ourselves would loop
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				log.Debug().
					Str("path", r.URL.Path).
					Str("state", string(decision.State)).
					Str("redirect", decision.Path).
					Msg("guard redirect")
				http.Redirect(w, r, withFrom(decision.Path, decision.From), http.StatusSeeOther)
			}
		}
	}
}

// RequireAPI guards a JSON endpoint. The same decision is reported as a status code
// instead of a redirect.
func (s *Server) RequireAPI(g guard.Guard) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			state := s.authState(r)
			decision := g.Evaluate(state, r.URL.RequestURI())

			switch decision.State {
			case guard.StateAuthorized:
				next(w, r.WithContext(sessions.WithState(r.Context(), state)))
			case guard.StateLoading:
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, "unavailable", "service starting", http.StatusServiceUnavailable)
			case guard.StateUnauthenticated:
				writeJSONError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
			case guard.StateOTPRequired:
				writeJSONError(w, "otp_required", "one-time passcode required", http.StatusForbidden)
			default:
				writeJSONError(w, "forbidden", "insufficient role", http.StatusForbidden)
			}
		}
	}
}
