package notifier

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is Telegram's limit for a single message text
const MaxMessageLength = 4096

// Notifier delivers a rendered message to the destination chat
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Format renders the highlights of one account as a Telegram HTML message.
// The output depends only on its arguments.
func Format(now time.Time, account string, highlights []string) string {
	var b strings.Builder
	b.WriteString("🔍 <b>X Monitor Scan</b>\n")
	fmt.Fprintf(&b, "<i>%s</i>\n\n", now.UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "<b>@%s</b>\n", html.EscapeString(account))

	const ellipsis = "…"
	for _, h := range highlights {
		line := "• " + markdownToHTML(h) + "\n"
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(line)+utf8.RuneCountInString(ellipsis) > MaxMessageLength {
			b.WriteString(ellipsis)
			break
		}
		b.WriteString(line)
	}

	return strings.TrimRight(b.String(), "\n")
}

var (
	codeBlockRe  = regexp.MustCompile("```([^`]+)```")
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^\*]+)\*\*`)
	italicRe     = regexp.MustCompile(`__([^_]+)__`)
	strikeRe     = regexp.MustCompile(`~~([^~]+)~~`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)\s]+)\)`)
)

// markdownToHTML converts the markdown subset models use to Telegram HTML.
// Telegram accepts only b, i, s, code, pre and a tags; everything else is escaped.
func markdownToHTML(text string) string {
	if text == "" {
		return ""
	}

	text = html.EscapeString(text)

	text = codeBlockRe.ReplaceAllString(text, "<pre>$1</pre>")
	text = inlineCodeRe.ReplaceAllString(text, "<code>$1</code>")
	text = boldRe.ReplaceAllString(text, "<b>$1</b>")
	text = italicRe.ReplaceAllString(text, "<i>$1</i>")
	text = strikeRe.ReplaceAllString(text, "<s>$1</s>")
	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)

	return text
}
