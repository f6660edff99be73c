package sanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes all HTML tags and attributes.
var StrictPolicy = bluemonday.StrictPolicy()

// Strip removes markup from input and returns plain text.
// bluemonday escapes what it keeps, so entities are decoded again to return
// "Côte d'Ivoire" rather than "Côte d&#39;Ivoire".
func Strip(input string) string {
	if input == "" {
		return ""
	}
	return html.UnescapeString(StrictPolicy.Sanitize(input))
}

// HasMarkup reports whether input contains anything the strict policy would
// remove. Free text is stored as sent, so callers reject such input instead
// of rewriting it.
func HasMarkup(input string) bool {
	return Strip(input) != input
}
