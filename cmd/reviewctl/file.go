package main

import (
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/evalreview/internal/core"
)

// importFile runs the importer over a file on disk. The content type comes
// from the extension, so a non-.csv file is rejected the way a browser
// upload of it would be.
func importFile(path string, maxSize int64) (core.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	upload := core.Upload{
		Name:        filepath.Base(path),
		ContentType: contentTypeFor(path),
		Size:        info.Size(),
		Body:        f,
	}
	slog.Debug("importing file", "path", path, "content_type", upload.ContentType, "size", upload.Size)

	return core.Importer{MaxFileSize: maxSize}.Import(upload)
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".csv" {
		return core.CSVContentType
	}
	return mime.TypeByExtension(ext)
}
