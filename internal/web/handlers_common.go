package web

// This file contains request parsing shared by the page and API handlers.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/evalreview/internal/core"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart form is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// readMultipartUpload extracts the "file" part of a multipart form. A form
// without a file yields a nil upload. The returned cleanup closes the part
// and removes any temporary files.
func (s *Server) readMultipartUpload(w http.ResponseWriter, r *http.Request) (*core.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
		}
		return nil, func() {}, fmt.Errorf("parse form: %w", err)
	}
	removeForm := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, removeForm, nil
	}
	if err != nil {
		return nil, removeForm, fmt.Errorf("read form file: %w", err)
	}

	upload := &core.Upload{
		Name:        filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return upload, func() {
		file.Close()
		removeForm()
	}, nil
}

// readRawUpload treats the request body itself as the file. The name comes
// from the "name" query parameter.
func (s *Server) readRawUpload(w http.ResponseWriter, r *http.Request) *core.Upload {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.csv"
	}
	size := r.ContentLength
	if size < 0 {
		size = 0
	}
	return &core.Upload{
		Name:        filepath.Base(name),
		ContentType: r.Header.Get("Content-Type"),
		Size:        size,
		Body:        http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize),
	}
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// cellParams reads the {rowID} and {field} route parameters.
func cellParams(r *http.Request) (int, core.Field, error) {
	raw := chi.URLParam(r, "rowID")
	rowID, err := strconv.Atoi(raw)
	if err != nil || rowID < 0 {
		return 0, "", fmt.Errorf("%w: row id %q", core.ErrInvalidInput, raw)
	}
	field := core.Field(chi.URLParam(r, "field"))
	if !field.Valid() {
		return 0, "", fmt.Errorf("%w: field %q", core.ErrInvalidInput, field)
	}
	return rowID, field, nil
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return fmt.Errorf("%w: decode body: %v", core.ErrInvalidInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON body", core.ErrInvalidInput)
	}
	return nil
}

// exportFileName derives the download name from the imported file's name.
func exportFileName(imported, ext string) string {
	base := strings.TrimSuffix(filepath.Base(imported), filepath.Ext(imported))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "review"
	}
	return base + "-reviewed." + ext
}
