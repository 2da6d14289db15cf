package blogservice

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	descriptionPolicy = bluemonday.UGCPolicy()

	// Markdown link targets are plain text to an HTML sanitizer.
	jsLinkRX = regexp.MustCompile(`(?i)(\]\(\s*)(?:javascript|vbscript|data)\s*:`)
)

// sanitizeMarkdown removes markup that could run in a reader's browser from a blog
// description. Inline HTML is reduced to the user-generated-content allowlist.
func sanitizeMarkdown(markdown string) string {
	out := descriptionPolicy.Sanitize(markdown)
	out = jsLinkRX.ReplaceAllString(out, "${1}#")
	return strings.TrimSpace(out)
}
