package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/evalreview/internal/core"
)

// DatasetResponse is the JSON form of a session's dataset.
type DatasetResponse struct {
	SessionID string     `json:"sessionId"`
	FileName  string     `json:"fileName"`
	RowCount  int        `json:"rowCount"`
	Rows      []core.Row `json:"rows"`
}

// CursorResponse is the JSON form of the edit cursor.
type CursorResponse struct {
	State string     `json:"state"`
	RowID *int       `json:"rowId,omitempty"`
	Field core.Field `json:"field,omitempty"`
	Draft string     `json:"draft,omitempty"`
}

// EditRequest commits one cell value.
type EditRequest struct {
	RowID *int       `json:"rowId"`
	Field core.Field `json:"field"`
	Value string     `json:"value"`
}

// BotOutputsRequest fills Bot Output by row id.
type BotOutputsRequest struct {
	Outputs map[int]string `json:"outputs"`
}

func datasetResponse(view core.View) DatasetResponse {
	rows := []core.Row(view.Dataset)
	if rows == nil {
		rows = []core.Row{}
	}
	return DatasetResponse{
		SessionID: view.SessionID,
		FileName:  view.FileName,
		RowCount:  len(rows),
		Rows:      rows,
	}
}

func (s *Server) handleAPIDataset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, datasetResponse(sessionFromContext(r.Context()).Snapshot()))
}

// handleAPIImport accepts either a multipart form with a "file" part or the
// CSV as the raw request body.
func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	var upload *core.Upload
	if isMultipart(r) {
		u, cleanup, err := s.readMultipartUpload(w, r)
		defer cleanup()
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if u == nil {
			s.respondError(w, r, fmt.Errorf("%w: form has no file part", core.ErrInvalidInput))
			return
		}
		upload = u
	} else {
		upload = s.readRawUpload(w, r)
	}

	if err := sess.Import(r.Context(), upload); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, datasetResponse(sess.Snapshot()))
}

func (s *Server) handleAPIEdit(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.RowID == nil {
		s.respondError(w, r, fmt.Errorf("%w: rowId is required", core.ErrInvalidInput))
		return
	}
	if !req.Field.Valid() {
		s.respondError(w, r, fmt.Errorf("%w: field %q", core.ErrInvalidInput, req.Field))
		return
	}

	sess := sessionFromContext(r.Context())
	if err := sess.Edit(r.Context(), *req.RowID, req.Field, req.Value); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, datasetResponse(sess.Snapshot()))
}

func (s *Server) handleAPIBotOutputs(w http.ResponseWriter, r *http.Request) {
	var req BotOutputsRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	sess := sessionFromContext(r.Context())
	sess.FillBotOutputs(r.Context(), req.Outputs)
	writeJSON(w, datasetResponse(sess.Snapshot()))
}

func (s *Server) handleAPICursor(w http.ResponseWriter, r *http.Request) {
	switch c := sessionFromContext(r.Context()).Snapshot().Cursor.(type) {
	case core.Editing:
		rowID := c.RowID
		writeJSON(w, CursorResponse{State: "editing", RowID: &rowID, Field: c.Field, Draft: c.Draft})
	default:
		writeJSON(w, CursorResponse{State: "idle"})
	}
}
