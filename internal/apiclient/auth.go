package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/readerdigest/internal/model"
)

// ErrEmptyToken はトークン交換のレスポンスにアクセストークンが含まれない場合のエラー。
var ErrEmptyToken = errors.New("アクセストークンが空です")

type userEnvelope struct {
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user"`
}

// Register はユーザーを登録し、アクセストークンとユーザーを返す。
func (c *Client) Register(ctx context.Context, in model.RegisterInput) (*model.AuthResult, error) {
	var out model.AuthResult
	err := c.do(ctx, request{endpoint: "auth.register", method: http.MethodPost, path: "/auth/register", body: in, noAuth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login はユーザー名またはメールアドレスとパスワードでログインする。
func (c *Client) Login(ctx context.Context, in model.LoginInput) (*model.AuthResult, error) {
	var out model.AuthResult
	err := c.do(ctx, request{endpoint: "auth.login", method: http.MethodPost, path: "/auth/login", body: in, noAuth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me はアクセストークンに対応するユーザーを返す。
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out userEnvelope
	if err := c.do(ctx, request{endpoint: "auth.me", method: http.MethodGet, path: "/auth/me"}, &out); err != nil {
		return nil, err
	}
	return requireBody("auth.me", out.User)
}

// Logout はバックエンドにログアウトを通知する。
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{endpoint: "auth.logout", method: http.MethodPost, path: "/auth/logout"}, nil)
}

// CheckAvailability はユーザー名・メールアドレスが利用可能かを確認する。
func (c *Client) CheckAvailability(ctx context.Context, in model.AvailabilityInput) (*model.AvailabilityResult, error) {
	var out model.AvailabilityResult
	err := c.do(ctx, request{endpoint: "auth.check_availability", method: http.MethodPost, path: "/auth/check-availability", body: in, noAuth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidatePassword はパスワードが強度要件を満たすかを確認する。
func (c *Client) ValidatePassword(ctx context.Context, password string) (*model.PasswordCheckResult, error) {
	var out model.PasswordCheckResult
	body := map[string]string{"password": password}
	err := c.do(ctx, request{endpoint: "auth.validate_password", method: http.MethodPost, path: "/auth/validate-password", body: body, noAuth: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangeLogtoIdentity はLogtoのIDをバックエンドのアクセストークンに交換する。
// secretはX-Logto-Exchange-Secretヘッダーで送る。
func (c *Client) ExchangeLogtoIdentity(ctx context.Context, secret string, in model.LogtoExchangeRequest) (*model.AuthResult, error) {
	var out model.AuthResult
	err := c.do(ctx, request{
		endpoint: "auth.logto_exchange",
		method:   http.MethodPost,
		path:     "/auth/logto/exchange",
		body:     in,
		header:   http.Header{exchangeSecretHeader: []string{secret}},
		noAuth:   true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, ErrEmptyToken
	}
	return &out, nil
}
