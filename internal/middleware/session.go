// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/session"
)

// SessionConfig はセッションミドルウェアの設定。
type SessionConfig struct {
	Cookie session.CookieOptions
	Now    func() time.Time
}

// NewSessionMiddleware はaccess_token Cookieからセッションを読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない場合は未ログインとしてそのまま通す。
// 期限切れ・不正なトークンのCookieは削除する。
func NewSessionMiddleware(cfg SessionConfig) func(next http.Handler) http.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.AccessTokenCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			s, err := session.New(cookie.Value, now())
			if err != nil {
				if errors.Is(err, session.ErrExpiredToken) || errors.Is(err, session.ErrMalformedToken) {
					slog.Debug("discarding access token cookie",
						slog.String("reason", err.Error()),
					)
					session.ClearAccessTokenCookie(w, cfg.Cookie)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), s)))
		})
	}
}

// RequireSession は未ログインのリクエストをログイン画面へリダイレクトするミドルウェアを返す。
// GETの場合は元のパスをredirectToに付ける。
func RequireSession(loginPath string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := session.FromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			target := loginPath
			if r.Method == http.MethodGet {
				target += "?" + url.Values{"redirectTo": {r.URL.RequestURI()}}.Encode()
			}
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

// RequireSessionJSON は未ログインのリクエストに401のJSONを返すミドルウェアを返す。
func RequireSessionJSON() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := session.FromContext(r.Context()); !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
