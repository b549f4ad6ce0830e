package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/craftyxhub/craftyx-portal/authapi"
	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "ready": s.Ready()})
	}
}

// PreflightHandler answers OPTIONS requests. CorsMiddleware sets the headers.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched when
// allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if allowEmpty && r.ContentLength == 0 {
		return true
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, "invalid_request", "malformed JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// formRedirect sends a form user back to page with an error message and the
// original from parameter.
func formRedirect(w http.ResponseWriter, r *http.Request, page, errMsg, from string) {
	q := url.Values{}
	if errMsg != "" {
		q.Set("error", errMsg)
	}
	if from != "" {
		q.Set("from", from)
	}
	target := page
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) expiresIn() int {
	return int(s.config.GetAccessTokenExpiry().Seconds())
}

// LoginHandler accepts JSON (API clients) or a form post (the login page).
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := isFormPost(r)

		var req authapi.LoginRequest
		var from string
		if form {
			if err := r.ParseForm(); err != nil {
				formRedirect(w, r, RouteLogin, "Invalid form submission", "")
				return
			}
			req.Username = r.PostFormValue("username")
			req.Password = r.PostFormValue("password")
			from = r.PostFormValue("from")
		} else if !decodeJSON(w, r, &req, false) {
			return
		}

		if err := s.validate.Struct(req); err != nil {
			if form {
				formRedirect(w, r, RouteLogin, "Username and password are required", from)
				return
			}
			writeJSONError(w, "invalid_request", "username and password are required", http.StatusBadRequest)
			return
		}

		session, user, err := s.auth.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			log.Info().Str("username", req.Username).Err(err).Msg("login failed")
			if form {
				formRedirect(w, r, RouteLogin, "Invalid username or password", from)
				return
			}
			writeServiceError(w, err)
			return
		}

		s.setSessionCookie(w, r, session.ID)
		if form {
			if session.RequiresOTP() {
				formRedirect(w, r, RouteOTP, "", from)
				return
			}
			http.Redirect(w, r, safeReturnPath(from, RouteDashboard), http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, authapi.NewSessionResponse(session, user, s.expiresIn()))
	}
}

// VerifyOTPHandler completes the passcode step for the session named in the body
// or the cookie.
func (s *Server) VerifyOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := isFormPost(r)

		var req authapi.OTPRequest
		var from string
		if form {
			if err := r.ParseForm(); err != nil {
				formRedirect(w, r, RouteOTP, "Invalid form submission", "")
				return
			}
			req.Code = r.PostFormValue("code")
			from = r.PostFormValue("from")
		} else if !decodeJSON(w, r, &req, false) {
			return
		}
		if req.SessionID == "" {
			req.SessionID = sessionIDFromCookie(r)
		}

		state := s.auth.Resolve(r.Context(), req.SessionID)
		if state.Session == nil {
			if form {
				formRedirect(w, r, RouteLogin, "Your session has expired, please sign in again", from)
				return
			}
			writeJSONError(w, "unauthorized", "no active session", http.StatusUnauthorized)
			return
		}

		if err := s.validate.Struct(req); err != nil {
			if form {
				formRedirect(w, r, RouteOTP, "Enter the numeric code you received", from)
				return
			}
			writeJSONError(w, "invalid_request", "a numeric code is required", http.StatusBadRequest)
			return
		}

		session, err := s.auth.VerifyOTP(r.Context(), state.Session, req.Code)
		if err != nil {
			if form {
				formRedirect(w, r, RouteOTP, "Invalid or expired code", from)
				return
			}
			writeServiceError(w, err)
			return
		}

		if form {
			http.Redirect(w, r, safeReturnPath(from, RouteDashboard), http.StatusSeeOther)
			return
		}
		writeJSON(w, http.StatusOK, authapi.NewSessionResponse(session, state.User, s.expiresIn()))
	}
}

// RefreshHandler rotates the session's tokens. A refresh token in the body must
// match the session's; cookie clients may omit it.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authapi.RefreshRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		if req.SessionID == "" {
			req.SessionID = sessionIDFromCookie(r)
		} else if req.RefreshToken == "" {
			// A session id alone is not proof of possession without the cookie
			writeJSONError(w, "invalid_request", "refreshToken is required with sessionId", http.StatusBadRequest)
			return
		}

		state := s.auth.Resolve(r.Context(), req.SessionID)
		if state.Session == nil {
			writeJSONError(w, "unauthorized", "no active session", http.StatusUnauthorized)
			return
		}

		session := *state.Session
		if req.RefreshToken != "" {
			session.RefreshToken = req.RefreshToken
		}

		refreshed, err := s.auth.Refresh(r.Context(), &session)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, authapi.NewSessionResponse(refreshed, state.User, s.expiresIn()))
	}
}

// LogoutHandler ends the session and clears the cookie. It succeeds even when
// there is no session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := isFormPost(r)

		var req authapi.LogoutRequest
		if !form && !decodeJSON(w, r, &req, true) {
			return
		}
		if req.SessionID == "" {
			req.SessionID = sessionIDFromCookie(r)
		}

		var state sessions.AuthState
		if req.SessionID != "" {
			state = s.auth.Resolve(r.Context(), req.SessionID)
		} else if raw := bearerToken(r); raw != "" {
			state = s.auth.ResolveToken(r.Context(), raw)
		}

		if state.Session != nil {
			if err := s.auth.Logout(r.Context(), state.Session); err != nil {
				writeServiceError(w, err)
				return
			}
		}
		s.clearSessionCookie(w, r)

		if form {
			http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler returns the authenticated user. It runs behind RequireAPI.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := sessions.StateFromContext(r.Context())
		if !ok || state.User == nil {
			writeJSONError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, state.User)
	}
}
