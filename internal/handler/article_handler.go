package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/readerdigest/internal/apiclient"
	"github.com/hitoshi/readerdigest/internal/article"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/preview"
	"github.com/hitoshi/readerdigest/internal/view"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	ListPublic(ctx context.Context, f article.PublicFilter) (*model.ArticleList, error)
	Latest(ctx context.Context) ([]model.Article, error)
	ListOwn(ctx context.Context, userID int64, page int) (*model.ArticleList, error)
	Get(ctx context.Context, id int64) (*model.Article, error)
	Create(ctx context.Context, form *article.Form) (*model.Article, error)
	Update(ctx context.Context, id int64, form *article.Form) (*model.Article, error)
	Delete(ctx context.Context, id int64) error
}

// AuthorDirectory は公開記事一覧の著者フィルタに使うユーザー情報源。
// user.Serviceが実装する。
type AuthorDirectory interface {
	Authors(ctx context.Context) ([]model.User, error)
	Author(ctx context.Context, id int64) (*model.User, error)
}

// ArticleHandler は記事の一覧・詳細・作成・編集のHTTPハンドラー。
type ArticleHandler struct {
	web      *Web
	service  ArticleServiceInterface
	previews preview.Previewer
	authors  AuthorDirectory
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(web *Web, service ArticleServiceInterface, previews preview.Previewer) *ArticleHandler {
	return &ArticleHandler{web: web, service: service, previews: previews}
}

// WithAuthors は公開記事一覧に著者フィルタを付ける。
func (h *ArticleHandler) WithAuthors(authors AuthorDirectory) *ArticleHandler {
	h.authors = authors
	return h
}

// articleListData は公開記事一覧のデータ。
type articleListData struct {
	Articles []model.Article
	Pager    view.Pager
	Filter   article.PublicFilter
	Authors  []model.User
	Author   *model.User
}

// articleDetailData は記事詳細のデータ。
type articleDetailData struct {
	Article *model.Article
	IsOwner bool
}

// articleFormData は記事フォームのデータ。
type articleFormData struct {
	Form       *article.Form
	ArticleID  int64
	Action     string
	Preview    *model.URLPreview
	PreviewURL string
}

// PublicList は公開記事を絞り込み条件付きで一覧表示する。
// GET /public/articles?q=&date=&user_id=&tag=&page=
func (h *ArticleHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := article.PublicFilter{
		Page:   pageParam(r),
		Search: q.Get("q"),
		Date:   q.Get("date"),
		Tag:    q.Get("tag"),
	}
	if id, err := strconv.ParseInt(q.Get("user_id"), 10, 64); err == nil && id > 0 {
		filter.UserID = id
	}

	var (
		list    *model.ArticleList
		authors []model.User
		author  *model.User
	)

	// 著者情報の取得失敗は一覧の表示を妨げない
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		list, err = h.service.ListPublic(ctx, filter)
		return err
	})
	if h.authors != nil {
		g.Go(func() error {
			var err error
			if authors, err = h.authors.Authors(ctx); err != nil {
				slog.Warn("failed to load authors", slog.String("error", err.Error()))
			}
			return nil
		})
		if filter.UserID != 0 {
			g.Go(func() error {
				var err error
				if author, err = h.authors.Author(ctx, filter.UserID); err != nil && !apiclient.IsNotFound(err) {
					slog.Warn("failed to load author",
						slog.Int64("user_id", filter.UserID),
						slog.String("error", err.Error()),
					)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		h.web.respondAPIError(w, r, err, "Articles", "/")
		return
	}

	h.web.render(w, r, http.StatusOK, "articles", "Articles", articleListData{
		Articles: list.Articles,
		Pager:    view.NewPager(list.Pagination, "/public/articles", q),
		Filter:   filter,
		Authors:  authors,
		Author:   author,
	})
}

// Detail は記事の詳細を表示する。
// 非公開の記事は所有者以外には見つからない扱いにする。
// GET /articles/{id}
func (h *ArticleHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.web.renderMessage(w, r, http.StatusNotFound, "Article not found", "Article not found.", "/public/articles")
		return
	}

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.web.respondAPIError(w, r, err, "Article", "/public/articles")
		return
	}

	isOwner := a.UserID != 0 && a.UserID == currentUserID(r)
	if !a.IsPublic && !isOwner {
		h.web.renderMessage(w, r, http.StatusNotFound, "Article not found",
			"Article not found. It may have been deleted or made private.", "/public/articles")
		return
	}

	h.web.render(w, r, http.StatusOK, "article", a.Title, articleDetailData{
		Article: a,
		IsOwner: isOwner,
	})
}

// NewPage は記事の作成フォームを表示する。
// urlが指定された場合はURLプレビューでタイトルと本文を補完する。
// GET /admin/articles/new?url=
func (h *ArticleHandler) NewPage(w http.ResponseWriter, r *http.Request) {
	form := article.NewForm(h.web.now())
	data := articleFormData{Form: form, Action: "/admin/articles"}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" || h.previews == nil {
		h.web.render(w, r, http.StatusOK, "article_form", "Add article", data)
		return
	}

	data.PreviewURL = rawURL
	p, err := h.previews.Preview(r.Context(), rawURL)
	if err != nil {
		form.URL = rawURL
		h.web.renderWithError(w, r, http.StatusOK, "article_form", "Add article", data, previewErrorMessage(err))
		return
	}
	form.ApplyPreview(p)
	data.Preview = p
	h.web.render(w, r, http.StatusOK, "article_form", "Add article", data)
}

// Create は記事を作成する。
// POST /admin/articles
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	form := &article.Form{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	a, err := h.service.Create(r.Context(), form)
	if err != nil {
		h.formFailed(w, r, err, articleFormData{Form: form, Action: "/admin/articles"}, "Add article")
		return
	}

	http.Redirect(w, r, withNotice("/articles/"+strconv.FormatInt(a.ID, 10), "article-created"), http.StatusSeeOther)
}

// EditPage は記事の編集フォームを表示する。
// GET /admin/articles/{id}/edit
func (h *ArticleHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	a, ok := h.ownedArticle(w, r)
	if !ok {
		return
	}

	h.web.render(w, r, http.StatusOK, "article_form", "Edit article", articleFormData{
		Form:      article.FormFromArticle(a),
		ArticleID: a.ID,
		Action:    articleAction(a.ID),
	})
}

// Update は記事を更新する。
// POST /admin/articles/{id}
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.web.renderMessage(w, r, http.StatusNotFound, "Article not found", "Article not found.", "/admin")
		return
	}

	form := &article.Form{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if _, err := h.service.Update(r.Context(), id, form); err != nil {
		h.formFailed(w, r, err, articleFormData{Form: form, ArticleID: id, Action: articleAction(id)}, "Edit article")
		return
	}

	http.Redirect(w, r, withNotice("/articles/"+strconv.FormatInt(id, 10), "article-updated"), http.StatusSeeOther)
}

// Delete は記事を削除する。
// POST /admin/articles/{id}/delete
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.web.renderMessage(w, r, http.StatusNotFound, "Article not found", "Article not found.", "/admin")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.web.respondAPIError(w, r, err, "Article", "/admin")
		return
	}

	http.Redirect(w, r, withNotice("/admin", "article-deleted"), http.StatusSeeOther)
}

// ownedArticle はログインユーザーが所有する記事を取得する。
// 取得できない場合はレスポンスを書き込んでfalseを返す。
func (h *ArticleHandler) ownedArticle(w http.ResponseWriter, r *http.Request) (*model.Article, bool) {
	id, ok := idParam(r)
	if !ok {
		h.web.renderMessage(w, r, http.StatusNotFound, "Article not found", "Article not found.", "/admin")
		return nil, false
	}

	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.web.respondAPIError(w, r, err, "Article", "/admin")
		return nil, false
	}
	// バックエンドも所有者を検証するため、主体が数値でないトークンでは確認を省く
	if uid := currentUserID(r); uid != 0 && a.UserID != uid {
		h.web.renderMessage(w, r, http.StatusForbidden, "Access denied",
			"You do not have permission to edit this article.", "/admin")
		return nil, false
	}
	return a, true
}

// formFailed は保存の失敗を処理する。入力エラーはフォームを再表示する。
func (h *ArticleHandler) formFailed(w http.ResponseWriter, r *http.Request, err error, data articleFormData, title string) {
	if msg, ok := formError(err); ok {
		h.web.renderWithError(w, r, http.StatusUnprocessableEntity, "article_form", title, data, msg)
		return
	}
	h.web.respondAPIError(w, r, err, "Article", "/admin")
}

func articleAction(id int64) string {
	return "/admin/articles/" + strconv.FormatInt(id, 10)
}

// previewErrorMessage はURLプレビューの失敗を表示文にする。
func previewErrorMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return "Could not fetch a preview: " + apiErr.Message
	}
	return "Could not fetch a preview for this URL."
}

// compile-time interface check
var _ ArticleServiceInterface = (*article.Service)(nil)
