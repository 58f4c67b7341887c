package web

import "net/http"

// handleImport replaces the session's dataset with an uploaded CSV. Choosing
// no file leaves everything as it was.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	upload, cleanup, err := s.readMultipartUpload(w, r)
	defer cleanup()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if upload == nil {
		redirectHome(w, r, "")
		return
	}

	if err := sess.Import(r.Context(), upload); err != nil {
		s.respondError(w, r, err)
		return
	}
	redirectHome(w, r, "")
}
