package advisor

import (
	"html"
	"regexp"
	"strings"
)

var scriptTagPattern = regexp.MustCompile(`(?is)<script.*?>.*?</script>`)

// Sanitize neutralizes user-supplied text before it reaches prompt templates
// or storage: script tags are stripped, remaining markup is HTML-escaped, and
// surrounding whitespace is trimmed.
func Sanitize(text string) string {
	text = scriptTagPattern.ReplaceAllString(text, "")
	text = html.EscapeString(text)
	return strings.TrimSpace(text)
}
