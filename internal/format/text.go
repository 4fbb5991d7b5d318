package format

import (
	"net/url"
	"strings"
)

// DefaultTruncateLength は一覧カードの抜粋の既定文字数。
const DefaultTruncateLength = 150

// Truncate はテキストをmaxLen文字（rune単位）で切り詰め、末尾に"..."を付ける。
func Truncate(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultTruncateLength
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}

// IsValidURL はhttp/httpsの絶対URLかどうかを判定する。
func IsValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DomainFromURL はURLのホスト名から"www."を除いたものを返す。
// 解析できない場合は入力をそのまま返す。
func DomainFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
