package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// MaxTextLength is the maximum number of runes kept from a single post
const MaxTextLength = 1000

// Parser turns raw post content into plain text
type Parser interface {
	Parse(raw string) (string, error)
}

// HTMLParser converts post HTML (RSS content, scraped markup) to markdown text
type HTMLParser struct{}

var (
	imageRe   = regexp.MustCompile(`!\[[^\]]*\]\([^\)]*\)`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

func (HTMLParser) Parse(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	md, err := htmltomarkdown.ConvertString(raw)
	if err != nil {
		return "", fmt.Errorf("failed to convert post HTML: %w", err)
	}
	// Images carry no text worth summarizing
	md = imageRe.ReplaceAllString(md, "")
	md = tagRe.ReplaceAllString(md, "")
	return Truncate(normalize(md), MaxTextLength), nil
}

// TextParser passes plain text through, normalizing whitespace
type TextParser struct{}

func (TextParser) Parse(raw string) (string, error) {
	return Truncate(normalize(raw), MaxTextLength), nil
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = newlineRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate cuts s to at most maxRunes runes
func Truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes])
}
