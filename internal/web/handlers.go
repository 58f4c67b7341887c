package web

import (
	"net/http"

	"github.com/JonMunkholm/evalreview/internal/logging"
	"github.com/JonMunkholm/evalreview/internal/web/templates"
)

// handleReview renders the review page for the caller's session.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	page := templates.ReviewPage(templates.ReviewPageParams{View: sess.Snapshot()})
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render review page", "error", err)
	}
}

// redirectHome sends the browser back to the review page, optionally to a
// row anchor.
func redirectHome(w http.ResponseWriter, r *http.Request, anchor string) {
	target := "/"
	if anchor != "" {
		target += "#" + anchor
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
