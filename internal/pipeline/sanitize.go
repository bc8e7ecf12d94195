package pipeline

import (
	"regexp"
	"strings"
)

var (
	reasoningBlock = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)
	strayTag       = regexp.MustCompile(`</?thinking[^>]*>`)
	actionTrace    = regexp.MustCompile(`Action: [^\n]*\n?`)
	decisionToken  = regexp.MustCompile(`^\s*<(TB|AG|REJECT)>\s*\n*`)
)

// Sanitize strips residual reasoning markup from accumulated visible text:
// whole <thinking> blocks, stray open/close tags, single-line "Action:"
// traces, and leading routing decision tokens.
func Sanitize(text string) string {
	text = reasoningBlock.ReplaceAllString(text, "")
	text = strayTag.ReplaceAllString(text, "")
	text = actionTrace.ReplaceAllString(text, "")
	text = decisionToken.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
