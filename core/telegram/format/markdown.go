package format

import (
	"fmt"
	"regexp"
)

const (
	// MarkdownV1 denotes Telegram markdown version 1.
	MarkdownV1 = 1
	// MarkdownV2 denotes Telegram markdown version 2.
	MarkdownV2 = 2
)

const mdV2Specials = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdown escapes special characters for MarkdownV1 or V2.
// For V2, entityType "pre", "code", or "text_link" narrows the escape set
// to what Telegram requires inside that entity.
func EscapeMarkdown(text string, version int, entityType string) (string, error) {
	switch version {
	case MarkdownV1:
		re := regexp.MustCompile(`[_*\\\[` + "`" + `]`)
		return re.ReplaceAllString(text, `\$0`), nil
	case MarkdownV2:
		specials := mdV2Specials
		switch entityType {
		case "pre", "code":
			specials = "\\`"
		case "text_link":
			specials = "\\)"
		}
		re := regexp.MustCompile("[\\\\" + regexp.QuoteMeta(specials) + "]")
		return re.ReplaceAllString(text, `\$0`), nil
	}
	return "", fmt.Errorf("unsupported markdown version: %d", version)
}
