package pdftext

import (
	"regexp"
	"strings"
)

var (
	headerPattern       = regexp.MustCompile(`#+\s`)
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\([^)]*\)`)
	emphasisPattern     = regexp.MustCompile("(\\*\\*|\\*|__|`)")
	hyphenBreakPattern  = regexp.MustCompile(`-\n`)
	pageNumberPattern   = regexp.MustCompile(`(?i)Page \d+ of \d+`)
	urlPattern          = regexp.MustCompile(`https?://\S+`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// Sanitize strips markup and layout artifacts that sound unnatural
// when read aloud or confuse downstream models. Pure: identical
// input always yields identical output.
func Sanitize(text string) string {
	text = headerPattern.ReplaceAllString(text, "")
	text = markdownLinkPattern.ReplaceAllString(text, "$1")
	text = emphasisPattern.ReplaceAllString(text, "")

	// Re-join words hyphenated across line breaks before flattening
	// the remaining newlines.
	text = hyphenBreakPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", " ")

	text = pageNumberPattern.ReplaceAllString(text, "")
	text = urlPattern.ReplaceAllString(text, "")

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}
