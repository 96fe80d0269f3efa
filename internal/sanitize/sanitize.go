// Package sanitize strips markup from free-text fields before storage.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text removes all HTML markup from s and returns the remaining plain text,
// trimmed of surrounding whitespace. Entities introduced by the policy are
// unescaped so stored text stays plain.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}
