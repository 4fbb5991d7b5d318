package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/readerdigest/internal/model"
)

// ListUsers はユーザー一覧を取得する。
func (c *Client) ListUsers(ctx context.Context, page, perPage int) (*model.UserList, error) {
	var out model.UserList
	err := c.do(ctx, request{endpoint: "users.list", method: http.MethodGet, path: "/users", query: pageQuery(page, perPage, 0, "")}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUser はユーザーを1件取得する。
func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var out userEnvelope
	if err := c.do(ctx, request{endpoint: "users.get", method: http.MethodGet, path: "/users/" + strconv.FormatInt(id, 10)}, &out); err != nil {
		return nil, err
	}
	return requireBody("users.get", out.User)
}

// GetProfile はログインユーザーのプロフィールを取得する。
func (c *Client) GetProfile(ctx context.Context) (*model.User, error) {
	var out userEnvelope
	if err := c.do(ctx, request{endpoint: "users.profile", method: http.MethodGet, path: "/users/profile"}, &out); err != nil {
		return nil, err
	}
	return requireBody("users.profile", out.User)
}

// UpdateProfile はログインユーザーのプロフィールを更新する。
func (c *Client) UpdateProfile(ctx context.Context, in model.ProfileInput) (*model.User, error) {
	var out userEnvelope
	if err := c.do(ctx, request{endpoint: "users.update_profile", method: http.MethodPut, path: "/users/profile", body: in}, &out); err != nil {
		return nil, err
	}
	return requireBody("users.update_profile", out.User)
}

// ChangePassword はログインユーザーのパスワードを変更する。
func (c *Client) ChangePassword(ctx context.Context, in model.PasswordChangeInput) error {
	return c.do(ctx, request{endpoint: "users.change_password", method: http.MethodPost, path: "/users/change-password", body: in}, nil)
}

// Deactivate はログインユーザーのアカウントを無効化する。
func (c *Client) Deactivate(ctx context.Context) error {
	return c.do(ctx, request{endpoint: "users.deactivate", method: http.MethodPost, path: "/users/deactivate"}, nil)
}
