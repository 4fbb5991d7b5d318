package auth

import (
	"net/url"
	"strings"
)

// DefaultRedirect はリダイレクト先が不正・未指定の場合の遷移先。
const DefaultRedirect = "/admin"

// SanitizeRedirect はサインイン後のリダイレクト先を同一オリジンの相対パスに制限する。
// "/" で始まり、"//" や "/\" で始まらず、スキームもホストも持たないパスのみ許可する。
func SanitizeRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return DefaultRedirect
	}
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return DefaultRedirect
	}
	if strings.ContainsAny(raw, "\r\n\t") {
		return DefaultRedirect
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return DefaultRedirect
	}
	return raw
}
