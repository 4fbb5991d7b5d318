package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/readerdigest/internal/model"
)

type articleEnvelope struct {
	Message string         `json:"message,omitempty"`
	Article *model.Article `json:"article"`
}

// ListArticles は記事一覧を取得する。
func (c *Client) ListArticles(ctx context.Context, q model.ArticleQuery) (*model.ArticleList, error) {
	var out model.ArticleList
	err := c.do(ctx, request{endpoint: "articles.list", method: http.MethodGet, path: "/articles", query: articleQuery(q)}, &out)
	if err != nil {
		return nil, err
	}
	if out.Articles == nil {
		out.Articles = []model.Article{}
	}
	return &out, nil
}

// GetArticle は記事を1件取得する。
func (c *Client) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, request{endpoint: "articles.get", method: http.MethodGet, path: "/articles/" + strconv.FormatInt(id, 10)}, &out); err != nil {
		return nil, err
	}
	return requireBody("articles.get", out.Article)
}

// CreateArticle は記事を作成する。
func (c *Client) CreateArticle(ctx context.Context, in model.ArticleInput) (*model.Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, request{endpoint: "articles.create", method: http.MethodPost, path: "/articles", body: in}, &out); err != nil {
		return nil, err
	}
	return requireBody("articles.create", out.Article)
}

// UpdateArticle は記事を更新する。
func (c *Client) UpdateArticle(ctx context.Context, id int64, in model.ArticleInput) (*model.Article, error) {
	var out articleEnvelope
	if err := c.do(ctx, request{endpoint: "articles.update", method: http.MethodPut, path: "/articles/" + strconv.FormatInt(id, 10), body: in}, &out); err != nil {
		return nil, err
	}
	return requireBody("articles.update", out.Article)
}

// DeleteArticle は記事を削除する。
func (c *Client) DeleteArticle(ctx context.Context, id int64) error {
	return c.do(ctx, request{endpoint: "articles.delete", method: http.MethodDelete, path: "/articles/" + strconv.FormatInt(id, 10)}, nil)
}

// PreviewURL はバックエンドのURLプレビューを呼び出す。
func (c *Client) PreviewURL(ctx context.Context, rawURL string) (*model.URLPreview, error) {
	var out model.URLPreview
	body := map[string]string{"url": rawURL}
	if err := c.do(ctx, request{endpoint: "articles.preview_url", method: http.MethodPost, path: "/articles/preview-url", body: body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func articleQuery(q model.ArticleQuery) url.Values {
	v := pageQuery(q.Page, q.PerPage, q.UserID, q.View)
	if q.Date != "" {
		v.Set("date", q.Date)
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

func pageQuery(page, perPage int, userID int64, view model.ViewType) url.Values {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		v.Set("per_page", strconv.Itoa(perPage))
	}
	if userID > 0 {
		v.Set("user_id", strconv.FormatInt(userID, 10))
	}
	if view != "" {
		v.Set("view", string(view))
	}
	return v
}
