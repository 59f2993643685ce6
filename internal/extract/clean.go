package extract

import (
	"regexp"
	"strings"
)

var (
	urlPattern        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	markdownPattern   = regexp.MustCompile("[*_~`>#\\[\\]()|]+")
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText joins title and body, lowercases, removes links and markdown
// markup, and collapses whitespace.
func CleanText(title, body string) string {
	text := strings.ToLower(strings.TrimSpace(title + " " + body))
	text = urlPattern.ReplaceAllString(text, " ")
	text = markdownPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
