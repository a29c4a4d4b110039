// Package sanitize cleans user-supplied text before it is stored and later
// rendered by the console.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	rich  = bluemonday.UGCPolicy()
	plain = bluemonday.StrictPolicy()
)

// HTML keeps safe formatting markup (descriptions, comments, AI commentary).
func HTML(s string) string {
	return strings.TrimSpace(rich.Sanitize(s))
}

// Text strips all markup (titles, names, labels). The result is plain text,
// not HTML, so entities are decoded again.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(plain.Sanitize(s)))
}
