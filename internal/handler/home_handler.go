package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/readerdigest/internal/article"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/view"
)

// HomeHandler はホーム画面とダッシュボードのHTTPハンドラー。
type HomeHandler struct {
	web      *Web
	articles ArticleServiceInterface
	digests  DigestServiceInterface
}

// NewHomeHandler はHomeHandlerを生成する。
func NewHomeHandler(web *Web, articles ArticleServiceInterface, digests DigestServiceInterface) *HomeHandler {
	return &HomeHandler{web: web, articles: articles, digests: digests}
}

type homeData struct {
	Articles      []model.Article
	Digests       []model.Digest
	ArticlesError string
	DigestsError  string
}

type dashboardData struct {
	Articles    []model.Article
	Pager       view.Pager
	Stats       article.Stats
	DigestCount int
}

// Home は最新の公開記事と公開ダイジェストを表示する。
// どちらかの取得に失敗しても、その欄にメッセージを出して描画を続ける。
// GET /
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	var (
		data       homeData
		articleErr error
		digestErr  error
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		data.Articles, articleErr = h.articles.Latest(ctx)
		return nil
	})
	g.Go(func() error {
		data.Digests, digestErr = h.digests.Latest(ctx)
		return nil
	})
	_ = g.Wait()

	if articleErr != nil {
		slog.Warn("failed to load latest articles", slog.String("error", articleErr.Error()))
		data.ArticlesError = "Could not load recent articles."
	}
	if digestErr != nil {
		slog.Warn("failed to load latest digests", slog.String("error", digestErr.Error()))
		data.DigestsError = "Could not load recent digests."
	}

	h.web.render(w, r, http.StatusOK, "home", "", data)
}

// Dashboard はログインユーザーの記事一覧と集計値を表示する。
// GET /admin?page=
func (h *HomeHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var (
		list        *model.ArticleList
		digestCount int
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		list, err = h.articles.ListOwn(ctx, userID, pageParam(r))
		return err
	})
	g.Go(func() error {
		n, err := h.digests.Count(ctx, userID)
		if err != nil {
			// 件数は補助情報なので、認証エラー以外は0件として続ける
			if isAuthError(err) {
				return err
			}
			slog.Warn("failed to count digests", slog.String("error", err.Error()))
			return nil
		}
		digestCount = n
		return nil
	})
	if err := g.Wait(); err != nil {
		h.web.respondAPIError(w, r, err, "Dashboard", "/")
		return
	}

	h.web.render(w, r, http.StatusOK, "dashboard", "Dashboard", dashboardData{
		Articles:    list.Articles,
		Pager:       view.NewPager(list.Pagination, "/admin", r.URL.Query()),
		Stats:       article.ComputeStats(list, h.web.now()),
		DigestCount: digestCount,
	})
}
