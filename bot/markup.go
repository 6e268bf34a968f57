package bot

import (
	"regexp"
	"strings"
)

var (
	markupPattern = regexp.MustCompile(`<([^<>]*)>`)
	unescaper     = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&")
)

// Reduces Slack's message markup to the text a reader sees. User mentions
// are dropped entirely.
func StripMarkup(text string) string {
	stripped := markupPattern.ReplaceAllStringFunc(text, func(token string) string {
		inner := token[1 : len(token)-1]
		target, label, hasLabel := strings.Cut(inner, "|")

		switch {
		case strings.HasPrefix(target, "@"):
			return ""
		case strings.HasPrefix(target, "#"):
			if hasLabel {
				return "#" + label
			}
			return ""
		case strings.HasPrefix(target, "!"):
			if hasLabel {
				return label
			}
			return "@" + strings.TrimPrefix(target, "!")
		case hasLabel:
			return label
		default:
			return strings.TrimPrefix(target, "mailto:")
		}
	})
	return strings.TrimSpace(unescaper.Replace(stripped))
}
