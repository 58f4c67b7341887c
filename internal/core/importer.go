package core

// importer.go turns an uploaded CSV into a Dataset.
//
// Validation happens in a fixed order and short-circuits:
//  1. Declared content type (before the body is touched)
//  2. Declared size, when a limit is configured
//  3. CSV syntax of the whole file
//  4. Required header columns
//
// Rows are only mapped once every check has passed, so a failed import never
// yields a partial dataset.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
)

// CSVContentType is the only media type accepted for uploads.
const CSVContentType = "text/csv"

// Upload is a user-selected file as declared by the client.
type Upload struct {
	Name        string
	ContentType string
	Size        int64 // Declared size in bytes, 0 if unknown
	Body        io.Reader
}

// Importer parses review CSVs. The zero value is ready to use.
type Importer struct {
	// MaxFileSize rejects uploads whose declared size exceeds it. 0 disables the check.
	MaxFileSize int64
}

// Load imports upload and hands the resulting dataset to onDataLoaded.
// A nil upload (no file selected) is a no-op: no error and no callback.
// onDataLoaded is called exactly once per successful import and never on failure.
func (im Importer) Load(upload *Upload, onDataLoaded func(Dataset)) error {
	if upload == nil {
		return nil
	}
	ds, err := im.Import(*upload)
	if err != nil {
		return err
	}
	if onDataLoaded != nil {
		onDataLoaded(ds)
	}
	return nil
}

// Import parses upload into a fresh Dataset.
// On failure the returned dataset is nil and err matches one of ErrNotCSV,
// ErrFileTooLarge, ErrParseFailure or ErrMissingColumns, or wraps the error
// returned while reading the body.
func (im Importer) Import(upload Upload) (Dataset, error) {
	if !IsCSVContentType(upload.ContentType) {
		return nil, fmt.Errorf("%w: declared type %q", ErrNotCSV, upload.ContentType)
	}
	if im.MaxFileSize > 0 && upload.Size > im.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, upload.Size, im.MaxFileSize)
	}
	if upload.Body == nil {
		return nil, &ParseError{Message: "empty upload body"}
	}

	reader := csv.NewReader(WrapForImport(upload.Body))
	reader.FieldsPerRecord = -1 // rows may be wider or narrower than the header

	records, err := reader.ReadAll()
	if err != nil {
		var csvErr *csv.ParseError
		if !errors.As(err, &csvErr) {
			// Transport failures such as a tripped body limit are not syntax errors.
			return nil, fmt.Errorf("read upload: %w", err)
		}
		return nil, &ParseError{Message: strings.TrimPrefix(csvErr.Error(), "parse error "), Err: err}
	}

	if len(records) == 0 {
		return nil, &MissingColumnsError{Missing: []string{HeaderInput, HeaderExpectedOutput}}
	}

	header := records[0]
	inputIdx, expectedIdx, err := locateRequired(header)
	if err != nil {
		return nil, err
	}

	data := records[1:]
	ds := make(Dataset, len(data))
	for i, record := range data {
		ds[i] = Row{
			ID:             i,
			Input:          cellAt(record, inputIdx),
			ExpectedOutput: cellAt(record, expectedIdx),
		}
	}
	return ds, nil
}

// cellAt returns record[i], or "" when a short row has no cell there.
func cellAt(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

// IsCSVContentType reports whether a declared content type is text/csv.
// Parameters such as charset are allowed; the media type itself must match.
func IsCSVContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == CSVContentType
}

// locateRequired finds the required header cells. The first occurrence of a
// duplicated header wins.
func locateRequired(header []string) (inputIdx, expectedIdx int, err error) {
	inputIdx, expectedIdx = -1, -1
	for i, name := range header {
		switch {
		case name == HeaderInput && inputIdx < 0:
			inputIdx = i
		case name == HeaderExpectedOutput && expectedIdx < 0:
			expectedIdx = i
		}
	}

	var missing []string
	if inputIdx < 0 {
		missing = append(missing, HeaderInput)
	}
	if expectedIdx < 0 {
		missing = append(missing, HeaderExpectedOutput)
	}
	if len(missing) > 0 {
		return 0, 0, &MissingColumnsError{Missing: missing}
	}
	return inputIdx, expectedIdx, nil
}
