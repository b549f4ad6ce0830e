package server

import (
	"net/http"
)

type formatRequest struct {
	Markdown      string `json:"markdown" validate:"max=1000000"`
	ExcerptLength int    `json:"excerptLength,omitempty" validate:"gte=0,lte=10000"`
}

type formatResponse struct {
	HTML    string `json:"html"`
	Excerpt string `json:"excerpt,omitempty"`
}

type stripRequest struct {
	HTML string `json:"html" validate:"max=1000000"`
}

type stripResponse struct {
	Text string `json:"text"`
}

// ContentHTMLHandler renders markdown to sanitized HTML, with an optional excerpt.
func (s *Server) ContentHTMLHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req formatRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		resp := formatResponse{HTML: s.formatter.ToHTML(req.Markdown)}
		if req.ExcerptLength > 0 {
			resp.Excerpt = s.formatter.Excerpt(req.Markdown, req.ExcerptLength)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ContentStripHandler removes all markup from HTML.
func (s *Server) ContentStripHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req stripRequest
		if !decodeJSON(w, r, &req, false) {
			return
		}
		if err := s.validate.Struct(req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, stripResponse{Text: s.formatter.StripHTML(req.HTML)})
	}
}
