package article

import (
	"time"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/model"
)

// Form は記事の作成・編集フォーム。
// Tagsはカンマ区切りの文字列として入力を受ける。
type Form struct {
	Title       string `form:"title" label:"Title" validate:"required,max=255"`
	URL         string `form:"url" label:"URL" validate:"omitempty,max=2048,weburl"`
	Content     string `form:"content" label:"Content" validate:"required"`
	Notes       string `form:"notes" label:"Notes"`
	Tags        string `form:"tags" label:"Tags" validate:"max=500"`
	ReadingDate string `form:"reading_date" label:"Reading date" validate:"omitempty,date"`
	IsPublic    bool   `form:"is_public"`
}

// NewForm は新規作成用の初期値を持つフォームを返す。
func NewForm(now time.Time) *Form {
	return &Form{
		ReadingDate: now.Format(format.InputDateLayout),
	}
}

// FormFromArticle は既存の記事から編集フォームを作る。
func FormFromArticle(a *model.Article) *Form {
	return &Form{
		Title:       a.Title,
		URL:         a.URL,
		Content:     a.Content,
		Notes:       a.Notes,
		Tags:        format.JoinTags(a.Tags),
		ReadingDate: format.FormatDateForInput(a.ReadingDate),
		IsPublic:    a.IsPublic,
	}
}

// ApplyPreview はURLプレビューの結果を空欄のフィールドに反映する。
func (f *Form) ApplyPreview(p *model.URLPreview) {
	if p == nil {
		return
	}
	if f.URL == "" {
		f.URL = p.URL
	}
	if f.Title == "" {
		f.Title = p.Title
	}
	if f.Content == "" && p.Description != "" {
		f.Content = p.Description
	}
}

// Input はフォームをAPIリクエストのボディに変換する。
func (f *Form) Input() model.ArticleInput {
	return model.ArticleInput{
		Title:       f.Title,
		URL:         f.URL,
		Content:     f.Content,
		Notes:       f.Notes,
		Tags:        format.ParseTags(f.Tags),
		ReadingDate: f.ReadingDate,
		IsPublic:    f.IsPublic,
	}
}
