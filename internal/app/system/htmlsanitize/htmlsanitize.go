// Package htmlsanitize strips markup from free text submitted by clients.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag (and the contents of script/style elements).
// Policies are safe for concurrent use once built.
var strict = bluemonday.StrictPolicy()

// PlainText returns s with all HTML removed and surrounding whitespace
// trimmed. Remaining special characters are HTML-escaped by the policy.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(strict.Sanitize(s))
}
