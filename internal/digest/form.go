package digest

import (
	"time"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/model"
)

// Form はダイジェストのレビュー・編集フォーム。
type Form struct {
	Title     string `form:"title" label:"Title" validate:"required,max=255"`
	Content   string `form:"content" label:"Content" validate:"required"`
	Summary   string `form:"summary" label:"Summary"`
	WeekStart string `form:"week_start" label:"Week start" validate:"required,date"`
	WeekEnd   string `form:"week_end" label:"Week end" validate:"required,date"`
	IsPublic  bool   `form:"is_public"`
}

// GenerateForm は週次ダイジェスト生成フォーム。
type GenerateForm struct {
	WeekStart   string `form:"week_start" label:"Week start" validate:"required,date"`
	WeekEnd     string `form:"week_end" label:"Week end" validate:"required,date"`
	CustomTitle string `form:"custom_title" label:"Title" validate:"max=255"`
}

// NewGenerateForm は前週を初期値とする生成フォームを返す。
func NewGenerateForm(now time.Time) *GenerateForm {
	w := format.PreviousWeek(now)
	return &GenerateForm{
		WeekStart: w.StartString(),
		WeekEnd:   w.EndString(),
	}
}

// FormFromGenerated は生成された下書きからレビューフォームを作る。
// 生成直後は公開設定をオンにしておく。
func FormFromGenerated(g *model.GeneratedDigest) *Form {
	return &Form{
		Title:     g.Title,
		Content:   g.Content,
		Summary:   g.Summary,
		WeekStart: format.FormatDateForInput(g.WeekStart),
		WeekEnd:   format.FormatDateForInput(g.WeekEnd),
		IsPublic:  true,
	}
}

// FormFromDigest は既存のダイジェストから編集フォームを作る。
func FormFromDigest(d *model.Digest) *Form {
	return &Form{
		Title:     d.Title,
		Content:   d.Content,
		Summary:   d.Summary,
		WeekStart: format.FormatDateForInput(d.WeekStart),
		WeekEnd:   format.FormatDateForInput(d.WeekEnd),
		IsPublic:  d.IsPublic,
	}
}

// Input はフォームをAPIリクエストのボディに変換する。
func (f *Form) Input(publish bool) model.DigestInput {
	return model.DigestInput{
		Title:       f.Title,
		Content:     f.Content,
		Summary:     f.Summary,
		WeekStart:   f.WeekStart,
		WeekEnd:     f.WeekEnd,
		IsPublished: publish,
		IsPublic:    f.IsPublic,
	}
}
