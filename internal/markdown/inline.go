package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseInline は1行分のテキストをインライン要素の列に変換する。
// 対応する記法: `code`, **strong**, __strong__, *em*, _em_, [text](url)。
// 閉じられていない記号はそのままテキストとして扱う。
func ParseInline(s string) []Inline {
	var out []Inline
	var text strings.Builder

	flushText := func() {
		if text.Len() > 0 {
			out = appendText(out, text.String())
			text.Reset()
		}
	}

	for i := 0; i < len(s); {
		c := s[i]

		switch {
		case c == '\\' && i+1 < len(s) && isEscapable(s[i+1]):
			text.WriteByte(s[i+1])
			i += 2
			continue

		case c == '`':
			if end := strings.IndexByte(s[i+1:], '`'); end >= 0 {
				flushText()
				out = append(out, Inline{Kind: InlineCode, Text: s[i+1 : i+1+end]})
				i += end + 2
				continue
			}

		case (c == '*' || c == '_') && strings.HasPrefix(s[i:], string([]byte{c, c})):
			delim := s[i : i+2]
			if end := strings.Index(s[i+2:], delim); end > 0 {
				flushText()
				out = append(out, Inline{
					Kind:     InlineStrong,
					Children: ParseInline(s[i+2 : i+2+end]),
				})
				i += end + 4
				continue
			}

		case c == '*' || c == '_':
			if end := findEmphasisEnd(s, i); end > 0 {
				flushText()
				out = append(out, Inline{
					Kind:     InlineEmphasis,
					Marker:   string(c),
					Children: ParseInline(s[i+1 : end]),
				})
				i = end + 1
				continue
			}

		case c == '[':
			if label, url, n, ok := parseLink(s[i:]); ok {
				flushText()
				out = append(out, Inline{
					Kind:     InlineLink,
					URL:      url,
					Children: ParseInline(label),
				})
				i += n
				continue
			}
		}

		text.WriteByte(c)
		i++
	}
	flushText()

	return out
}

// findEmphasisEnd は位置startの区切り文字に対応する閉じ位置を返す。
// "_" は単語の途中（snake_caseなど）では区切りとみなさない。
func findEmphasisEnd(s string, start int) int {
	c := s[start]
	if start+1 >= len(s) || s[start+1] == ' ' {
		return -1
	}
	if c == '_' && start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
			return -1
		}
	}

	for j := start + 1; j < len(s); j++ {
		if s[j] != c {
			continue
		}
		if j+1 < len(s) && s[j+1] == c {
			j++
			continue
		}
		if s[j-1] == ' ' {
			continue
		}
		if c == '_' && j+1 < len(s) {
			next, _ := utf8.DecodeRuneInString(s[j+1:])
			if unicode.IsLetter(next) || unicode.IsDigit(next) {
				continue
			}
		}
		if j == start+1 {
			return -1
		}
		return j
	}
	return -1
}

// parseLink は "[label](url)" を解析し、ラベル・URL・消費バイト数を返す。
func parseLink(s string) (label, url string, n int, ok bool) {
	closeLabel := strings.Index(s, "](")
	if closeLabel <= 0 {
		return "", "", 0, false
	}
	rest := s[closeLabel+2:]
	closeURL := strings.IndexByte(rest, ')')
	if closeURL < 0 {
		return "", "", 0, false
	}
	url = strings.TrimSpace(rest[:closeURL])
	if url == "" || strings.ContainsAny(url, " \t") {
		return "", "", 0, false
	}
	return s[1:closeLabel], url, closeLabel + 2 + closeURL + 1, true
}

func appendText(out []Inline, s string) []Inline {
	if n := len(out); n > 0 && out[n-1].Kind == InlineText {
		out[n-1].Text += s
		return out
	}
	return append(out, Inline{Kind: InlineText, Text: s})
}

func isEscapable(c byte) bool {
	return strings.IndexByte("\\`*_[]()#>-!", c) >= 0
}
