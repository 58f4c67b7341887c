// Package templates renders the review UI as templ components. The
// *_templ.go files are generated from the .templ sources with
// `templ generate`; edit the sources, not the generated code.
package templates

//go:generate templ generate

import (
	"net/url"
	"strconv"

	"github.com/JonMunkholm/evalreview/internal/core"
)

// EditURL is the form action that puts a cell into edit mode.
func EditURL(rowID int, field core.Field) string {
	return "/cells/" + strconv.Itoa(rowID) + "/" + url.PathEscape(string(field)) + "/edit"
}

func pageTitle(fileName string) string {
	if fileName == "" {
		return "Evaluation Review"
	}
	return fileName + " - Evaluation Review"
}

func rowAnchor(rowID int) string {
	return "row-" + strconv.Itoa(rowID)
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return strconv.Itoa(n) + " rows"
}

func label(f core.Field) string {
	for _, col := range core.Columns {
		if col.Field == f {
			return col.Label
		}
	}
	return string(f)
}
