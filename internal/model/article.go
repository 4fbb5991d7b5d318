// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"

	"github.com/hitoshi/readerdigest/internal/format"
)

// Tags は記事のタグ。
// バックエンドはJSON配列を返すが、古いレコードではJSON文字列やカンマ区切り文字列のこともある。
type Tags []string

// UnmarshalJSON は配列・文字列・nullのいずれも受け付ける。
func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		if list == nil {
			list = []string{}
		}
		*t = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = Tags{}
		return nil
	}
	*t = format.ParseTags(s)
	return nil
}

// Article は読書記録として保存された記事を表す。
type Article struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Notes       string `json:"notes"`
	Tags        Tags   `json:"tags"`
	ReadingDate string `json:"reading_date"`
	IsPublic    bool   `json:"is_public"`
	UserID      int64  `json:"user_id"`
	Author      string `json:"author"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ArticleInput は記事の作成・更新リクエストのボディ。
type ArticleInput struct {
	Title       string   `json:"title"`
	URL         string   `json:"url,omitempty"`
	Content     string   `json:"content"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags"`
	ReadingDate string   `json:"reading_date,omitempty"`
	IsPublic    bool     `json:"is_public"`
}

// ArticleList は記事一覧APIのレスポンス。
type ArticleList struct {
	Articles   []Article  `json:"articles"`
	Pagination Pagination `json:"pagination"`
}

// ArticleQuery は記事一覧APIのクエリパラメータ。
// ゼロ値のフィールドは送信しない。
type ArticleQuery struct {
	Page    int
	PerPage int
	UserID  int64
	Date    string
	Tag     string
	Search  string
	View    ViewType
}
