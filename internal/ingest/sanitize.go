package ingest

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var contentPolicy = newContentPolicy()

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "ul", "ol", "li",
		"h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	return p
}

var scriptPattern = regexp.MustCompile(`(?is)<script\b.*?</script>`)

// SanitizeContent strips markup down to a small structural allow-list,
// removes any script block as a second pass, and trims whitespace.
func SanitizeContent(content string) string {
	cleaned := contentPolicy.Sanitize(content)
	cleaned = scriptPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
