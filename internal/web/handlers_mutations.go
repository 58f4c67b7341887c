package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/evalreview/internal/core"
)

// handleBeginEdit puts a cell into edit mode. Clicking a read-only cell is
// a no-op.
func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	rowID, field, err := cellParams(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sessionFromContext(r.Context()).Click(rowID, field)
	redirectHome(w, r, rowAnchor(rowID))
}

// handleDraft stores the text typed so far. Called by fetch while typing.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
		return
	}

	if err := sessionFromContext(r.Context()).UpdateDraft(r.PostForm.Get("value")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCommit writes the draft into the dataset. A "value" field, when
// present, replaces the draft first so a submit never loses the last
// keystrokes.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidInput, err))
		return
	}
	sess := sessionFromContext(r.Context())

	var (
		ed  core.Editing
		err error
	)
	if _, present := r.PostForm["value"]; present {
		ed, err = sess.CommitDraft(r.Context(), r.PostForm.Get("value"))
	} else {
		ed, err = sess.Commit(r.Context())
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	redirectHome(w, r, rowAnchor(ed.RowID))
}

func rowAnchor(rowID int) string {
	return fmt.Sprintf("row-%d", rowID)
}
