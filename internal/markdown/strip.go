package markdown

import (
	"regexp"
	"strings"

	"github.com/hitoshi/readerdigest/internal/format"
)

var stripRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("(?s)```.*?```"), ""},
	{regexp.MustCompile("`([^`]+)`"), "$1"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
	{regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},
	{regexp.MustCompile(`__([^_]+)__`), "$1"},
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},
	{regexp.MustCompile(`\b_([^_]+)_\b`), "$1"},
	{regexp.MustCompile(`(?m)^\s*>\s?`), ""},
	{regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+`), ""},
	{regexp.MustCompile(`(?m)^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`), ""},
	{regexp.MustCompile(`\s+`), " "},
}

// StripMarkdown はマークダウン記法を取り除いたプレーンテキストを返す。
func StripMarkdown(src string) string {
	s := src
	for _, r := range stripRules {
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return strings.TrimSpace(s)
}

// Excerpt はマークダウンから記法を取り除き、maxLen文字で切り詰めた抜粋を返す。
func Excerpt(src string, maxLen int) string {
	return format.Truncate(StripMarkdown(src), maxLen)
}
