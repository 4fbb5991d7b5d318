package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/readerdigest/internal/auth"
	"github.com/hitoshi/readerdigest/internal/middleware"
	"github.com/hitoshi/readerdigest/internal/model"
)

// IdPセッションCookieのサインイン中の有効期間（秒）。
const pendingCookieMaxAge = 600

// AuthServiceInterface はLogtoハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	BeginSignIn(ctx context.Context, redirectTo string) (*auth.SignInStart, error)
	CompleteSignIn(ctx context.Context, sessionID string, params auth.CallbackParams) (*auth.SignInResult, error)
	SignOut(ctx context.Context, sessionID, redirectTo string) string
	CurrentIdentity(ctx context.Context, sessionID string) (*auth.Claims, error)
}

// AuthHandlerConfig はLogtoハンドラーの設定。
type AuthHandlerConfig struct {
	CookieName    string // IdPセッションCookieの名前（logto_<appId>）
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // サインイン完了後のIdPセッションCookieの有効期間（秒）
}

// AuthHandler はLogtoのサインインフローのHTTPハンドラー。
type AuthHandler struct {
	web     *Web
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(web *Web, service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		web:     web,
		service: service,
		config:  config,
	}
}

// Action はLogtoのアクションを振り分ける。
// GET|POST /api/auth/logto/{action}
func (h *AuthHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "sign-in":
		h.SignIn(w, r)
	case "sign-in-callback":
		h.Callback(w, r)
	case "sign-out":
		h.SignOut(w, r)
	case "user":
		h.User(w, r)
	default:
		middleware.WriteAPIError(w, model.NewUnsupportedLogtoActionError())
	}
}

// SignIn はIdPセッションを作成し、認可エンドポイントへリダイレクトする。
// GET /api/auth/logto/sign-in?redirectTo=/admin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	start, err := h.service.BeginSignIn(r.Context(), r.URL.Query().Get("redirectTo"))
	if err != nil {
		h.failSignIn(w, r, err)
		return
	}

	h.setProviderCookie(w, start.SessionID, pendingCookieMaxAge)
	http.Redirect(w, r, start.AuthURL, http.StatusFound)
}

// Callback はIdPからのコールバックを処理し、アクセストークンを発行してアプリへ戻す。
// GET /api/auth/logto/sign-in-callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := auth.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		RedirectTo:       q.Get("redirectTo"),
	}

	result, err := h.service.CompleteSignIn(r.Context(), h.providerSessionID(r), params)
	if err != nil {
		h.clearProviderCookie(w)
		h.failSignIn(w, r, err)
		return
	}

	h.web.signIn(w, result.AccessToken)
	h.setProviderCookie(w, h.providerSessionID(r), h.config.SessionMaxAge)
	http.Redirect(w, r, result.RedirectTo, http.StatusFound)
}

// SignOut はIdPセッションとアクセストークンを破棄し、IdPのログアウトへリダイレクトする。
// GET|POST /api/auth/logto/sign-out?redirectTo=/
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	target := h.service.SignOut(r.Context(), h.providerSessionID(r), r.URL.Query().Get("redirectTo"))

	h.clearProviderCookie(w)
	h.web.expireSession(w, r)
	http.Redirect(w, r, target, http.StatusFound)
}

// userResponse はuserアクションのレスポンス。
type userResponse struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	Claims          *auth.Claims `json:"claims"`
}

// User は有効なIdPセッションのクレームを返す。
// GET /api/auth/logto/user
func (h *AuthHandler) User(w http.ResponseWriter, r *http.Request) {
	claims, err := h.service.CurrentIdentity(r.Context(), h.providerSessionID(r))
	if err != nil {
		if !errors.Is(err, auth.ErrNoProviderSession) {
			slog.Error("failed to read provider session", slog.String("error", err.Error()))
		}
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(userResponse{
		IsAuthenticated: true,
		Claims:          claims,
	})
}

// LegacyCallback は旧コールバックURLをsign-in-callbackへ転送する。
// GET /api/auth/callback
func (h *AuthHandler) LegacyCallback(w http.ResponseWriter, r *http.Request) {
	target := "/api/auth/logto/sign-in-callback"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// failSignIn はサインインの失敗をログに残し、エラーコード付きでログイン画面へ戻す。
func (h *AuthHandler) failSignIn(w http.ResponseWriter, r *http.Request, err error) {
	code := auth.CodeCallback
	var signInErr *auth.SignInError
	if errors.As(err, &signInErr) {
		code = signInErr.Code
	}
	slog.Warn("logto sign-in failed",
		slog.String("code", code),
		slog.String("error", err.Error()),
	)
	http.Redirect(w, r, loginPath+"?"+url.Values{"error": {code}}.Encode(), http.StatusFound)
}

func (h *AuthHandler) providerSessionID(r *http.Request) string {
	c, err := r.Cookie(h.config.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// setProviderCookie はIdPセッションCookieを設定する。
// IdPからのリダイレクトで送られるよう、Secureの場合はSameSite=Noneにする。
func (h *AuthHandler) setProviderCookie(w http.ResponseWriter, id string, maxAge int) {
	if id == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    id,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.sameSite(),
	})
}

func (h *AuthHandler) clearProviderCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: h.sameSite(),
	})
}

func (h *AuthHandler) sameSite() http.SameSite {
	if h.config.CookieSecure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// compile-time interface check
var _ AuthServiceInterface = (*auth.Service)(nil)
