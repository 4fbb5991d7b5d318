// Package digest は週次ダイジェストの一覧・生成・編集・公開のドメインロジックを提供する。
package digest

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/readerdigest/internal/apiclient"
	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/validation"
)

const (
	// PublicPageSize は公開ダイジェスト一覧の1ページあたりの件数。
	PublicPageSize = 12
	// AdminPageSize は管理画面の1ページあたりの件数。
	AdminPageSize = 20
	// LatestCount はホーム画面に表示する最新ダイジェストの件数。
	LatestCount = 3
)

// Backend はダイジェストAPIのインターフェース。apiclient.Clientが実装する。
type Backend interface {
	ListDigests(ctx context.Context, q model.DigestQuery) (*model.DigestList, error)
	GetDigest(ctx context.Context, id int64) (*model.Digest, error)
	CreateDigest(ctx context.Context, in model.DigestInput) (*model.Digest, error)
	UpdateDigest(ctx context.Context, id int64, in model.DigestInput) (*model.Digest, error)
	DeleteDigest(ctx context.Context, id int64) error
	GenerateWeeklyDigest(ctx context.Context, in apiclient.GenerateInput) (*model.GeneratedDigest, error)
	AvailableWeeks(ctx context.Context) (*model.AvailableWeeks, error)
}

// Status は管理画面のステータス絞り込み。
type Status string

const (
	StatusAll       Status = "all"
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

// ParseStatus はクエリ値をStatusに変換する。不明な値はStatusAll。
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPublished:
		return StatusPublished
	case StatusDraft:
		return StatusDraft
	default:
		return StatusAll
	}
}

// Service はダイジェストのサービス層。
type Service struct {
	backend   Backend
	validator *validation.Validator
}

// NewService はServiceを生成する。
// Formの週の前後関係チェックをvに登録する。
func NewService(backend Backend, v *validation.Validator) *Service {
	v.RegisterStructRule(weekOrderRule, Form{})
	v.RegisterStructRule(generateWeekOrderRule, GenerateForm{})
	return &Service{backend: backend, validator: v}
}

// ListPublic は公開ダイジェストを取得する。
// バックエンドの応答に関わらず、公開済みかつ公開設定のものだけを返す。
func (s *Service) ListPublic(ctx context.Context, page int) (*model.DigestList, error) {
	list, err := s.backend.ListDigests(ctx, model.DigestQuery{
		Page:    normalizePage(page),
		PerPage: PublicPageSize,
		View:    model.ViewPublic,
	})
	if err != nil {
		return nil, err
	}
	list.Digests = FilterPublic(list.Digests)
	return list, nil
}

// Latest はホーム画面用の最新公開ダイジェストを取得する。
func (s *Service) Latest(ctx context.Context) ([]model.Digest, error) {
	list, err := s.backend.ListDigests(ctx, model.DigestQuery{
		Page:    1,
		PerPage: LatestCount,
		View:    model.ViewPublic,
	})
	if err != nil {
		return nil, err
	}
	return FilterPublic(list.Digests), nil
}

// GetPublic は公開ページ用にダイジェストを取得する。
// 非公開・未公開のものは見つからない扱いにする。
func (s *Service) GetPublic(ctx context.Context, id int64) (*model.Digest, error) {
	d, err := s.backend.GetDigest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.IsPubliclyVisible() {
		return nil, &apiclient.Error{
			Kind:       apiclient.KindNotFound,
			StatusCode: 404,
			Message:    "Digest not found",
		}
	}
	return d, nil
}

// Get は所有者向けにダイジェストを取得する。
func (s *Service) Get(ctx context.Context, id int64) (*model.Digest, error) {
	return s.backend.GetDigest(ctx, id)
}

// AdminFilter は管理画面の絞り込み条件。
type AdminFilter struct {
	Page   int
	Search string
	Status Status
}

// ListOwn はログインユーザーのダイジェストを取得し、検索語とステータスで絞り込む。
// 絞り込みは取得済みのページに対して行う。
func (s *Service) ListOwn(ctx context.Context, userID int64, f AdminFilter) (*model.DigestList, error) {
	list, err := s.backend.ListDigests(ctx, model.DigestQuery{
		Page:    normalizePage(f.Page),
		PerPage: AdminPageSize,
		UserID:  userID,
		View:    model.ViewOwn,
	})
	if err != nil {
		return nil, err
	}
	list.Digests = FilterAdmin(list.Digests, f.Search, f.Status)
	return list, nil
}

// Count はログインユーザーのダイジェスト総数を返す。
func (s *Service) Count(ctx context.Context, userID int64) (int, error) {
	list, err := s.backend.ListDigests(ctx, model.DigestQuery{
		Page:    1,
		PerPage: 1,
		UserID:  userID,
		View:    model.ViewOwn,
	})
	if err != nil {
		return 0, err
	}
	if list.Pagination.Total > 0 {
		return list.Pagination.Total, nil
	}
	return len(list.Digests), nil
}

// AvailableWeeks は記事があり、ダイジェストを生成できる週を返す。
func (s *Service) AvailableWeeks(ctx context.Context) ([]model.AvailableWeek, error) {
	weeks, err := s.backend.AvailableWeeks(ctx)
	if err != nil {
		return nil, err
	}
	if weeks.Weeks == nil {
		return []model.AvailableWeek{}, nil
	}
	return weeks.Weeks, nil
}

// Generate は指定週のダイジェスト下書きをバックエンドに生成させる。
// 結果は保存されず、レビュー用のフォームとして返す。
func (s *Service) Generate(ctx context.Context, form *GenerateForm) (*Form, *model.GeneratedDigest, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, nil, err
	}

	gen, err := s.backend.GenerateWeeklyDigest(ctx, apiclient.GenerateInput{
		WeekStart:   form.WeekStart,
		WeekEnd:     form.WeekEnd,
		CustomTitle: form.CustomTitle,
	})
	if err != nil {
		return nil, nil, err
	}
	return FormFromGenerated(gen), gen, nil
}

// Create はフォームを検証してからダイジェストを保存する。
// publishがtrueの場合は公開済みとして保存する。
func (s *Service) Create(ctx context.Context, form *Form, publish bool) (*model.Digest, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}
	return s.backend.CreateDigest(ctx, form.Input(publish))
}

// Update はフォームを検証してからダイジェストを更新する。
func (s *Service) Update(ctx context.Context, id int64, form *Form, publish bool) (*model.Digest, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}
	return s.backend.UpdateDigest(ctx, id, form.Input(publish))
}

// Delete はダイジェストを削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.backend.DeleteDigest(ctx, id); err != nil {
		return fmt.Errorf("ダイジェストの削除に失敗しました: %w", err)
	}
	return nil
}

// FilterPublic は公開済みかつ公開設定のダイジェストだけを残す。
func FilterPublic(digests []model.Digest) []model.Digest {
	out := make([]model.Digest, 0, len(digests))
	for _, d := range digests {
		if d.IsPubliclyVisible() {
			out = append(out, d)
		}
	}
	return out
}

// FilterAdmin はタイトル・要約・著者の部分一致とステータスで絞り込む。
// 検索語の大文字小文字は区別しない。
func FilterAdmin(digests []model.Digest, search string, status Status) []model.Digest {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]model.Digest, 0, len(digests))
	for _, d := range digests {
		if !matchesStatus(d, status) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(d.Title), term) &&
			!strings.Contains(strings.ToLower(d.Summary), term) &&
			!strings.Contains(strings.ToLower(d.Author), term) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func matchesStatus(d model.Digest, status Status) bool {
	switch status {
	case StatusPublished:
		return d.IsPublished
	case StatusDraft:
		return !d.IsPublished
	default:
		return true
	}
}

// weekOrderRule は週の終了日が開始日以降であることを検証する。
func weekOrderRule(sl validator.StructLevel) {
	f := sl.Current().Interface().(Form)
	if !weekOrdered(f.WeekStart, f.WeekEnd) {
		sl.ReportError(f.WeekEnd, "WeekEnd", "WeekEnd", "weekorder", "")
	}
}

func generateWeekOrderRule(sl validator.StructLevel) {
	f := sl.Current().Interface().(GenerateForm)
	if !weekOrdered(f.WeekStart, f.WeekEnd) {
		sl.ReportError(f.WeekEnd, "WeekEnd", "WeekEnd", "weekorder", "")
	}
}

// weekOrdered は両方の日付が解釈できる場合のみ前後関係を判定する。
// 形式の誤りはフィールド単位のdateルールで検出する。
func weekOrdered(start, end string) bool {
	s, okS := format.ParseDate(start)
	e, okE := format.ParseDate(end)
	if !okS || !okE {
		return true
	}
	return !e.Before(s)
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
