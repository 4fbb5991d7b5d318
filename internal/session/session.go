// Package session はバックエンド発行のアクセストークンによるリクエスト単位のセッションを提供する。
package session

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenCookie はアクセストークンを保持するCookie名。
// クライアント側のスクリプトからも読めるようHttpOnlyにしない。
const AccessTokenCookie = "access_token"

var (
	// ErrNoToken はアクセストークンがない場合のエラー。
	ErrNoToken = errors.New("アクセストークンがありません")
	// ErrMalformedToken はJWTとして解釈できない場合のエラー。
	ErrMalformedToken = errors.New("アクセストークンの形式が不正です")
	// ErrExpiredToken は有効期限切れの場合のエラー。
	ErrExpiredToken = errors.New("アクセストークンの有効期限が切れています")
)

// Session はリクエストに紐づくログイン状態。
// トークンの署名検証はバックエンドが行うため、ここでは期限と主体のみ読む。
type Session struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

// New はアクセストークンからセッションを生成する。
func New(token string, now time.Time) (*Session, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, ErrMalformedToken
	}

	s := &Session{Token: token, Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
		if !now.Before(s.ExpiresAt) {
			return nil, ErrExpiredToken
		}
	}
	return s, nil
}

// UserID はトークンの主体をユーザーIDとして返す。数値でない場合は0。
func (s *Session) UserID() int64 {
	if s == nil {
		return 0
	}
	id, err := strconv.ParseInt(s.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

type contextKey struct{}

// WithSession はコンテキストにセッションを格納する。
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext はコンテキストからセッションを取り出す。
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// TokenFromContext はコンテキストのセッションのアクセストークンを返す。
// APIクライアントのTokenSourceとして使う。
func TokenFromContext(ctx context.Context) string {
	if s, ok := FromContext(ctx); ok {
		return s.Token
	}
	return ""
}

// CookieOptions はアクセストークンCookieの属性。
type CookieOptions struct {
	Secure bool
	Domain string
	MaxAge int
}

// SetAccessTokenCookie はアクセストークンCookieを設定する。
func SetAccessTokenCookie(w http.ResponseWriter, token string, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAccessTokenCookie はアクセストークンCookieを削除する。
func ClearAccessTokenCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   -1,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
