// Package sanitize provides helpers for deriving stable identifiers from
// display strings and for validating resource URLs.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	// Underscore stays in the keep-set and collapses like whitespace, so a
	// key fed back through Key comes out unchanged.
	invalidRune = regexp.MustCompile(`[^a-z0-9\s_]`)
	separators  = regexp.MustCompile(`[\s_]+`)
)

// Key converts a display string into a safe, stable identifier usable as a
// routing segment or map key.
// Example: "Ação" -> "acao", "US Sports" -> "us_sports".
//
// Key is idempotent: Key(Key(s)) == Key(s). An empty result is valid and
// means the caller should treat the input as uncategorized.
func Key(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}

	stripped = strings.ToLower(stripped)
	stripped = invalidRune.ReplaceAllString(stripped, "")
	stripped = separators.ReplaceAllString(stripped, "_")

	return strings.Trim(stripped, "_")
}

// IsHTTPURL reports whether s is an absolute http or https URL with a host.
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return u.Host != ""
}
