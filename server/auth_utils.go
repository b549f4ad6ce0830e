package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/craftyxhub/craftyx-portal/authapi"
	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

// sessionCookieName is the cookie carrying the server-side session id
const sessionCookieName = "craftyx_session"

// generateRandomString creates a random base64url string
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies() || getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetMaxSessionAge().Seconds()),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies() || getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func sessionIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// bearerToken returns the token of an "Authorization: Bearer" header, or "".
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// isFormPost reports whether the request came from an HTML form rather than a JSON client.
func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// safeReturnPath accepts only local absolute paths so a "from" parameter cannot
// send the browser to another site.
func safeReturnPath(from, fallback string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return fallback
	}
	u, err := url.Parse(from)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return from
}

// withFrom appends a url-encoded from parameter to path.
func withFrom(path, from string) string {
	if from == "" {
		return path
	}
	return path + "?from=" + url.QueryEscape(from)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, authapi.ErrorResponse{Error: errorCode, ErrorDescription: description})
}

// writeServiceError maps a service error onto an HTTP status and error code.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidCredentials):
		writeJSONError(w, "invalid_credentials", "invalid username or password", http.StatusUnauthorized)
	case errors.Is(err, errors.ErrOTPInvalid):
		writeJSONError(w, "invalid_otp", "invalid or expired passcode", http.StatusUnauthorized)
	case errors.Is(err, errors.ErrOTPNotRequired):
		writeJSONError(w, "otp_not_required", err.Error(), http.StatusConflict)
	case errors.Is(err, errors.ErrSessionNotFound),
		errors.Is(err, errors.ErrSessionExpired),
		errors.Is(err, errors.ErrNotAuthenticated):
		writeJSONError(w, "unauthorized", err.Error(), http.StatusUnauthorized)
	case errors.Is(err, errors.ErrInvalidRefreshToken),
		errors.Is(err, errors.ErrTokenExpired),
		errors.Is(err, errors.ErrInvalidToken):
		writeJSONError(w, "invalid_grant", err.Error(), http.StatusUnauthorized)
	case errors.Is(err, errors.ErrInvalidRequest):
		writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSONError(w, "server_error", "internal error", http.StatusInternalServerError)
	}
}
