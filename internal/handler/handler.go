// Package handler はHTTPハンドラーを提供する。
//
// ページはサーバー側で描画し、バックエンドAPIの呼び出しはドメインサービス経由で行う。
// 状態変更はすべてPOSTフォームで受け、処理後にリダイレクトする。
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/readerdigest/internal/apiclient"
	"github.com/hitoshi/readerdigest/internal/middleware"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/session"
	"github.com/hitoshi/readerdigest/internal/view"
)

const loginPath = "/login"

// PageRenderer はページ描画のインターフェース。view.Rendererが実装する。
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, name string, page *view.Page)
}

// ProfileSource はナビゲーションに表示するログインユーザーを返す。
type ProfileSource interface {
	Profile(r *http.Request) *model.User
	Forget(token string)
}

// Web はページハンドラーが共有する描画とセッション処理。
type Web struct {
	renderer PageRenderer
	profiles ProfileSource
	cookie   session.CookieOptions
	logger   *slog.Logger
	feedURL  string
	now      func() time.Time
}

// NewWeb はWebを生成する。profilesがnilの場合はナビゲーションにユーザー名を出さない。
func NewWeb(renderer PageRenderer, profiles ProfileSource, cookie session.CookieOptions, logger *slog.Logger) *Web {
	return &Web{
		renderer: renderer,
		profiles: profiles,
		cookie:   cookie,
		logger:   logger,
		now:      time.Now,
	}
}

// WithFeedURL は全ページのheadで告知するRSSフィードのURLを設定する。
func (web *Web) WithFeedURL(feedURL string) *Web {
	web.feedURL = feedURL
	return web
}

// page はリクエストのセッションとCSRFトークンを反映したページデータを作る。
func (web *Web) page(r *http.Request, title string, data any) *view.Page {
	p := &view.Page{
		Title:     title,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
		Notice:    noticeMessage(r.URL.Query().Get("notice")),
		FeedURL:   web.feedURL,
		Data:      data,
	}
	if _, ok := session.FromContext(r.Context()); ok {
		p.Authenticated = true
		if web.profiles != nil {
			p.User = web.profiles.Profile(r)
		}
	}
	return p
}

// render はページを描画する。
func (web *Web) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	web.renderer.Render(w, status, name, web.page(r, title, data))
}

// renderWithError はフォームのエラーを表示してページを再描画する。
func (web *Web) renderWithError(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, message string) {
	p := web.page(r, title, data)
	p.Error = message
	web.renderer.Render(w, status, name, p)
}

// messageData はメッセージページのデータ。
type messageData struct {
	Heading string
	Message string
	BackURL string
}

// renderMessage は403・404などをメッセージページとして描画する。
func (web *Web) renderMessage(w http.ResponseWriter, r *http.Request, status int, heading, message, backURL string) {
	web.render(w, r, status, "message", heading, messageData{
		Heading: heading,
		Message: message,
		BackURL: backURL,
	})
}

// respondAPIError はバックエンド呼び出しのエラーをページ単位の応答に変換する。
// 401はアクセストークンを破棄してログイン画面へ、403・404はメッセージを表示する。
// resourceは「Article」などの表示名。
func (web *Web) respondAPIError(w http.ResponseWriter, r *http.Request, err error, resource, backURL string) {
	switch apiclient.KindOf(err) {
	case apiclient.KindUnauthenticated:
		web.expireSession(w, r)
		http.Redirect(w, r, loginRedirect(r), http.StatusFound)
	case apiclient.KindForbidden:
		web.renderMessage(w, r, http.StatusForbidden, "Access denied",
			"You do not have permission to view this "+lowerFirst(resource)+".", backURL)
	case apiclient.KindNotFound:
		web.renderMessage(w, r, http.StatusNotFound, resource+" not found",
			resource+" not found. It may have been deleted or made private.", backURL)
	default:
		web.logger.Error("backend request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		web.renderMessage(w, r, http.StatusBadGateway, "Something went wrong",
			"We could not load this page. Please try again later.", backURL)
	}
}

// respondJSONError はJSONエンドポイント向けにエラーを返す。
// 401はページと同様にアクセストークンを破棄する。
func (web *Web) respondJSONError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		apiErr := model.NewValidationAPIError(ve.Message)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	switch apiclient.KindOf(err) {
	case apiclient.KindUnauthenticated:
		web.expireSession(w, r)
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
	case apiclient.KindForbidden:
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError(apiclient.MessageOf(err)))
	case apiclient.KindNotFound:
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError(apiclient.MessageOf(err)))
	case apiclient.KindInvalid:
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationAPIError(apiclient.MessageOf(err)))
	default:
		web.logger.Error("backend request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewBackendFailedError("The service is temporarily unavailable."))
	}
}

// formError はフォーム送信のエラーから表示メッセージを決める。
// 検証エラーと入力エラー(4xx)はそのまま表示し、それ以外はfalseを返す。
func formError(err error) (string, bool) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	if apiclient.IsInvalid(err) {
		return apiclient.MessageOf(err), true
	}
	return "", false
}

// expireSession はアクセストークンCookieとプロフィールキャッシュを破棄する。
func (web *Web) expireSession(w http.ResponseWriter, r *http.Request) {
	if token := session.TokenFromContext(r.Context()); token != "" && web.profiles != nil {
		web.profiles.Forget(token)
	}
	session.ClearAccessTokenCookie(w, web.cookie)
}

// signIn はアクセストークンCookieを設定する。
func (web *Web) signIn(w http.ResponseWriter, token string) {
	session.SetAccessTokenCookie(w, token, web.cookie)
}

// loginRedirect は現在のパスに戻るログインURLを返す。
func loginRedirect(r *http.Request) string {
	if r.Method != http.MethodGet {
		return loginPath
	}
	return loginPath + "?" + url.Values{"redirectTo": {r.URL.RequestURI()}}.Encode()
}

// withNotice はリダイレクト先にお知らせのキーを付ける。
func withNotice(path, notice string) string {
	return path + "?" + url.Values{"notice": {notice}}.Encode()
}

// お知らせのキーと表示文。任意の文言をクエリから表示しないよう固定の一覧から引く。
var notices = map[string]string{
	"article-created":     "Article saved.",
	"article-updated":     "Article updated.",
	"article-deleted":     "Article deleted.",
	"digest-created":      "Digest saved.",
	"digest-published":    "Digest published.",
	"digest-updated":      "Digest updated.",
	"digest-deleted":      "Digest deleted.",
	"profile-updated":     "Profile updated.",
	"password-changed":    "Password changed.",
	"signed-out":          "You have been signed out.",
	"account-deactivated": "Your account has been deactivated.",
}

func noticeMessage(key string) string {
	return notices[key]
}

// idParam はURLパラメータ{id}を正の整数として取り出す。
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pageParam はクエリのpageを取り出す。不正な値は1とする。
func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// currentUserID はログインユーザーのIDを返す。
func currentUserID(r *http.Request) int64 {
	s, _ := session.FromContext(r.Context())
	return s.UserID()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

// isAuthError は再ログインが必要なエラーかを判定する。
func isAuthError(err error) bool {
	return apiclient.IsUnauthenticated(err)
}
