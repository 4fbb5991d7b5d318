package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/readerdigest/internal/apiclient"
	"github.com/hitoshi/readerdigest/internal/auth"
	"github.com/hitoshi/readerdigest/internal/middleware"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/session"
	"github.com/hitoshi/readerdigest/internal/user"
)

// AccountServiceInterface はログイン・登録ハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	Login(ctx context.Context, form *user.LoginForm) (*model.AuthResult, error)
	Register(ctx context.Context, form *user.RegisterForm) (*model.AuthResult, error)
	Logout(ctx context.Context)
	CheckAvailability(ctx context.Context, form *user.AvailabilityForm) (*model.AvailabilityResult, error)
	ValidatePassword(ctx context.Context, password string) (*model.PasswordCheckResult, error)
}

// AccountHandlerConfig はログイン・登録ハンドラーの設定。
type AccountHandlerConfig struct {
	LogtoEnabled    bool
	LogtoCookieName string
}

// AccountHandler はパスワードログイン・ユーザー登録・ログアウトのHTTPハンドラー。
type AccountHandler struct {
	web     *Web
	service AccountServiceInterface
	config  AccountHandlerConfig
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(web *Web, service AccountServiceInterface, config AccountHandlerConfig) *AccountHandler {
	return &AccountHandler{web: web, service: service, config: config}
}

// loginData はログイン画面のデータ。
type loginData struct {
	Form         *user.LoginForm
	RedirectTo   string
	LogtoEnabled bool
}

// registerData はユーザー登録画面のデータ。
type registerData struct {
	Form         *user.RegisterForm
	LogtoEnabled bool
}

// サインイン失敗コードの表示文。
var signInErrorMessages = map[string]string{
	auth.CodeConfig:   "Sign-in with Logto is not configured. Please use your username and password.",
	auth.CodeCallback: "Sign-in with Logto failed. Please try again.",
	auth.CodeProfile:  "Your Logto profile is missing an email address. Add one and try again.",
	auth.CodeExchange: "We could not complete your sign-in. Please try again later.",
}

// LoginPage はログイン画面を表示する。ログイン済みの場合は管理画面へリダイレクトする。
// GET /login
func (h *AccountHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirectTo := r.URL.Query().Get("redirectTo")
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, auth.SanitizeRedirect(redirectTo), http.StatusFound)
		return
	}

	data := loginData{
		Form:         &user.LoginForm{},
		RedirectTo:   redirectTo,
		LogtoEnabled: h.config.LogtoEnabled,
	}
	if msg, ok := signInErrorMessages[r.URL.Query().Get("error")]; ok {
		h.web.renderWithError(w, r, http.StatusOK, "login", "Sign in", data, msg)
		return
	}
	h.web.render(w, r, http.StatusOK, "login", "Sign in", data)
}

// Login はパスワードでログインする。
// POST /login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := &user.LoginForm{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	redirectTo := r.PostForm.Get("redirectTo")
	data := loginData{Form: form, RedirectTo: redirectTo, LogtoEnabled: h.config.LogtoEnabled}

	result, err := h.service.Login(r.Context(), form)
	if err != nil {
		form.Password = ""
		if msg, ok := formError(err); ok {
			h.web.renderWithError(w, r, http.StatusUnprocessableEntity, "login", "Sign in", data, msg)
			return
		}
		if apiclient.IsUnauthenticated(err) {
			h.web.renderWithError(w, r, http.StatusUnauthorized, "login", "Sign in", data, "Invalid username or password.")
			return
		}
		h.web.respondAPIError(w, r, err, "Account", loginPath)
		return
	}

	h.web.signIn(w, result.AccessToken)
	http.Redirect(w, r, auth.SanitizeRedirect(redirectTo), http.StatusFound)
}

// RegisterPage はユーザー登録画面を表示する。
// GET /register
func (h *AccountHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, auth.DefaultRedirect, http.StatusFound)
		return
	}
	h.web.render(w, r, http.StatusOK, "register", "Register", registerData{
		Form:         &user.RegisterForm{},
		LogtoEnabled: h.config.LogtoEnabled,
	})
}

// Register はユーザーを登録し、そのままログインする。
// POST /register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := &user.RegisterForm{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	result, err := h.service.Register(r.Context(), form)
	if err != nil {
		form.Password, form.ConfirmPassword = "", ""
		data := registerData{Form: form, LogtoEnabled: h.config.LogtoEnabled}
		if msg, ok := formError(err); ok {
			h.web.renderWithError(w, r, http.StatusUnprocessableEntity, "register", "Register", data, msg)
			return
		}
		h.web.respondAPIError(w, r, err, "Account", "/register")
		return
	}

	h.web.signIn(w, result.AccessToken)
	http.Redirect(w, r, auth.DefaultRedirect, http.StatusFound)
}

// Logout はバックエンドのログアウトを呼び、アクセストークンを破棄する。
// IdPセッションがある場合はIdPのログアウトへ進む。
// POST /logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		h.service.Logout(r.Context())
	}
	h.web.expireSession(w, r)

	if h.config.LogtoEnabled && h.config.LogtoCookieName != "" {
		if c, err := r.Cookie(h.config.LogtoCookieName); err == nil && c.Value != "" {
			http.Redirect(w, r, "/api/auth/logto/sign-out?redirectTo=/", http.StatusFound)
			return
		}
	}
	http.Redirect(w, r, withNotice("/", "signed-out"), http.StatusFound)
}

// CheckAvailability はユーザー名・メールアドレスの利用可否を返す。
// POST /api/auth/check-availability
func (h *AccountHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	form := &user.AvailabilityForm{}
	if err := json.NewDecoder(r.Body).Decode(form); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationAPIError("Invalid request body."))
		return
	}

	result, err := h.service.CheckAvailability(r.Context(), form)
	if err != nil {
		h.web.respondJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// validatePasswordRequest はパスワード強度確認のリクエストボディ。
type validatePasswordRequest struct {
	Password string `json:"password"`
}

// ValidatePassword はパスワード強度の確認結果を返す。
// POST /api/auth/validate-password
func (h *AccountHandler) ValidatePassword(w http.ResponseWriter, r *http.Request) {
	var req validatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationAPIError("Invalid request body."))
		return
	}

	result, err := h.service.ValidatePassword(r.Context(), req.Password)
	if err != nil {
		h.web.respondJSONError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// compile-time interface check
var _ AccountServiceInterface = (*user.Service)(nil)

