// Package article は記事の一覧・詳細・作成・更新・削除のドメインロジックを提供する。
// 永続化はバックエンドAPIが行い、このパッケージは入力検証と表示用の集計を担う。
package article

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/validation"
)

const (
	// PublicPageSize は公開記事一覧の1ページあたりの件数。
	PublicPageSize = 12
	// OwnPageSize はダッシュボードの1ページあたりの件数。
	OwnPageSize = 10
	// LatestCount はホーム画面に表示する最新記事の件数。
	LatestCount = 6
)

// Backend は記事APIのインターフェース。apiclient.Clientが実装する。
type Backend interface {
	ListArticles(ctx context.Context, q model.ArticleQuery) (*model.ArticleList, error)
	GetArticle(ctx context.Context, id int64) (*model.Article, error)
	CreateArticle(ctx context.Context, in model.ArticleInput) (*model.Article, error)
	UpdateArticle(ctx context.Context, id int64, in model.ArticleInput) (*model.Article, error)
	DeleteArticle(ctx context.Context, id int64) error
}

// PublicFilter は公開記事一覧の絞り込み条件。
type PublicFilter struct {
	Page   int
	Search string
	Date   string
	UserID int64
	Tag    string
}

// Active は絞り込み条件が1つでも指定されているかを返す。
func (f PublicFilter) Active() bool {
	return f.Search != "" || f.Date != "" || f.UserID != 0 || f.Tag != ""
}

// Service は記事のサービス層。
type Service struct {
	backend   Backend
	validator *validation.Validator
}

// NewService はServiceを生成する。
func NewService(backend Backend, v *validation.Validator) *Service {
	return &Service{backend: backend, validator: v}
}

// ListPublic は公開記事を絞り込み条件付きで取得する。
// 絞り込みはバックエンドのクエリパラメータとして渡す。
func (s *Service) ListPublic(ctx context.Context, f PublicFilter) (*model.ArticleList, error) {
	return s.backend.ListArticles(ctx, model.ArticleQuery{
		Page:    normalizePage(f.Page),
		PerPage: PublicPageSize,
		UserID:  f.UserID,
		Date:    f.Date,
		Tag:     f.Tag,
		Search:  f.Search,
		View:    model.ViewPublic,
	})
}

// Latest はホーム画面用の最新公開記事を取得する。
func (s *Service) Latest(ctx context.Context) ([]model.Article, error) {
	list, err := s.backend.ListArticles(ctx, model.ArticleQuery{
		Page:    1,
		PerPage: LatestCount,
		View:    model.ViewPublic,
	})
	if err != nil {
		return nil, err
	}
	return list.Articles, nil
}

// ListOwn はログインユーザー自身の記事を取得する。
func (s *Service) ListOwn(ctx context.Context, userID int64, page int) (*model.ArticleList, error) {
	return s.backend.ListArticles(ctx, model.ArticleQuery{
		Page:    normalizePage(page),
		PerPage: OwnPageSize,
		UserID:  userID,
		View:    model.ViewOwn,
	})
}

// Get は記事を1件取得する。
func (s *Service) Get(ctx context.Context, id int64) (*model.Article, error) {
	return s.backend.GetArticle(ctx, id)
}

// Create はフォームを検証してから記事を作成する。
// 検証エラーの場合はバックエンドを呼ばずに*model.ValidationErrorを返す。
func (s *Service) Create(ctx context.Context, form *Form) (*model.Article, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}
	return s.backend.CreateArticle(ctx, form.Input())
}

// Update はフォームを検証してから記事を更新する。
func (s *Service) Update(ctx context.Context, id int64, form *Form) (*model.Article, error) {
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}
	return s.backend.UpdateArticle(ctx, id, form.Input())
}

// Delete は記事を削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.backend.DeleteArticle(ctx, id); err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	return nil
}

// Stats はダッシュボードに表示する集計値。
type Stats struct {
	Total       int
	PublicCount int
	RecentCount int
}

// ComputeStats は取得済みの記事から集計値を求める。
// RecentCountはnowから7日以内に作成された記事の数。
func ComputeStats(list *model.ArticleList, now time.Time) Stats {
	if list == nil {
		return Stats{}
	}
	st := Stats{Total: list.Pagination.Total}
	if st.Total == 0 {
		st.Total = len(list.Articles)
	}

	weekAgo := now.AddDate(0, 0, -7)
	for _, a := range list.Articles {
		if a.IsPublic {
			st.PublicCount++
		}
		if created, ok := format.ParseDate(a.CreatedAt); ok && created.After(weekAgo) {
			st.RecentCount++
		}
	}
	return st
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
