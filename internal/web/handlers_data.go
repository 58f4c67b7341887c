package web

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/evalreview/internal/core"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExport downloads the session's dataset as CSV or XLSX.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	view := sessionFromContext(r.Context()).Snapshot()

	var (
		buf         bytes.Buffer
		contentType string
		err         error
	)
	switch format {
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = core.WriteCSV(&buf, view.Dataset)
	case "xlsx":
		contentType = xlsxContentType
		err = core.WriteXLSX(&buf, view.Dataset)
	default:
		s.respondError(w, r, fmt.Errorf("%w: export format %q", core.ErrInvalidInput, format))
		return
	}
	if err != nil {
		s.respondError(w, r, fmt.Errorf("export %s: %w", format, err))
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": exportFileName(view.FileName, format),
	})
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
