package server

import (
	"html/template"
	"net/http"

	"github.com/craftyxhub/craftyx-portal/sessions"
	"github.com/rs/zerolog/log"
)

var pageTemplates = template.Must(template.New("layout").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>{{.AppName}} - {{.Title}}</title></head><body>
<h1>{{.Title}}</h1>
{{if .Error}}<p role="alert">{{.Error}}</p>{{end}}{{end}}

{{define "login"}}{{template "head" .}}
<form method="post" action="/auth/login">
  <input type="hidden" name="from" value="{{.From}}">
  <label>Username <input name="username" autocomplete="username" required></label>
  <label>Password <input name="password" type="password" autocomplete="current-password" required></label>
  <button type="submit">Sign in</button>
</form>
</body></html>{{end}}

{{define "otp"}}{{template "head" .}}
<form method="post" action="/auth/otp">
  <input type="hidden" name="from" value="{{.From}}">
  <label>Code <input name="code" inputmode="numeric" autocomplete="one-time-code" required></label>
  <button type="submit">Verify</button>
</form>
</body></html>{{end}}

{{define "protected"}}{{template "head" .}}
<p>Signed in as {{.User.Name}} ({{.User.Role}})</p>
<form method="post" action="/auth/logout"><button type="submit">Sign out</button></form>
</body></html>{{end}}
`))

type pageData struct {
	AppName string
	Title   string
	Error   string
	From    string
	User    any
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data pageData) {
	data.AppName = s.config.GetAppName()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("failed to render page")
	}
}

func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, "login", pageData{
			Title: "Sign in",
			Error: r.URL.Query().Get("error"),
			From:  safeReturnPath(r.URL.Query().Get("from"), ""),
		})
	}
}

func (s *Server) OTPPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, "otp", pageData{
			Title: "Enter your code",
			Error: r.URL.Query().Get("error"),
			From:  safeReturnPath(r.URL.Query().Get("from"), ""),
		})
	}
}

// ProtectedPageHandler renders a page that runs behind RequirePage.
func (s *Server) ProtectedPageHandler(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, ok := sessions.StateFromContext(r.Context())
		if !ok || state.User == nil {
			// Never render protected content without a guarded state
			http.Redirect(w, r, withFrom(RouteLogin, r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		s.renderPage(w, "protected", pageData{Title: title, User: state.User})
	}
}
