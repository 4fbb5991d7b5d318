package apiclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/readerdigest/internal/model"
)

type digestEnvelope struct {
	Message string        `json:"message,omitempty"`
	Digest  *model.Digest `json:"digest"`
}

// GenerateInput は週次ダイジェスト生成のリクエストボディ。
// 週を省略した場合はバックエンドが前週を使う。
type GenerateInput struct {
	WeekStart   string `json:"week_start,omitempty"`
	WeekEnd     string `json:"week_end,omitempty"`
	CustomTitle string `json:"custom_title,omitempty"`
}

// ListDigests はダイジェスト一覧を取得する。
func (c *Client) ListDigests(ctx context.Context, q model.DigestQuery) (*model.DigestList, error) {
	var out model.DigestList
	err := c.do(ctx, request{endpoint: "digests.list", method: http.MethodGet, path: "/digests", query: pageQuery(q.Page, q.PerPage, q.UserID, q.View)}, &out)
	if err != nil {
		return nil, err
	}
	if out.Digests == nil {
		out.Digests = []model.Digest{}
	}
	return &out, nil
}

// GetDigest はダイジェストを1件取得する。
func (c *Client) GetDigest(ctx context.Context, id int64) (*model.Digest, error) {
	var out digestEnvelope
	if err := c.do(ctx, request{endpoint: "digests.get", method: http.MethodGet, path: "/digests/" + strconv.FormatInt(id, 10)}, &out); err != nil {
		return nil, err
	}
	return requireBody("digests.get", out.Digest)
}

// CreateDigest はダイジェストを作成する。
func (c *Client) CreateDigest(ctx context.Context, in model.DigestInput) (*model.Digest, error) {
	var out digestEnvelope
	if err := c.do(ctx, request{endpoint: "digests.create", method: http.MethodPost, path: "/digests", body: in}, &out); err != nil {
		return nil, err
	}
	return requireBody("digests.create", out.Digest)
}

// UpdateDigest はダイジェストを更新する。
func (c *Client) UpdateDigest(ctx context.Context, id int64, in model.DigestInput) (*model.Digest, error) {
	var out digestEnvelope
	if err := c.do(ctx, request{endpoint: "digests.update", method: http.MethodPut, path: "/digests/" + strconv.FormatInt(id, 10), body: in}, &out); err != nil {
		return nil, err
	}
	return requireBody("digests.update", out.Digest)
}

// DeleteDigest はダイジェストを削除する。
func (c *Client) DeleteDigest(ctx context.Context, id int64) error {
	return c.do(ctx, request{endpoint: "digests.delete", method: http.MethodDelete, path: "/digests/" + strconv.FormatInt(id, 10)}, nil)
}

// GenerateWeeklyDigest は指定週の記事からダイジェストの下書きを生成する。
// 生成結果は保存されない。
func (c *Client) GenerateWeeklyDigest(ctx context.Context, in GenerateInput) (*model.GeneratedDigest, error) {
	var out model.GeneratedDigest
	if err := c.do(ctx, request{endpoint: "digests.generate_weekly", method: http.MethodPost, path: "/digests/generate-weekly", body: in}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AvailableWeeks は記事があり、ダイジェストを生成できる週の一覧を取得する。
func (c *Client) AvailableWeeks(ctx context.Context) (*model.AvailableWeeks, error) {
	var out model.AvailableWeeks
	if err := c.do(ctx, request{endpoint: "digests.available_weeks", method: http.MethodGet, path: "/digests/available-weeks"}, &out); err != nil {
		return nil, err
	}
	if out.Weeks == nil {
		out.Weeks = []model.AvailableWeek{}
	}
	return &out, nil
}
