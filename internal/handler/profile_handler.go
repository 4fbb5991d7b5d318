package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/session"
	"github.com/hitoshi/readerdigest/internal/user"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Profile(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, form *user.ProfileForm) (*model.User, error)
	ChangePassword(ctx context.Context, form *user.PasswordForm) error
	Deactivate(ctx context.Context, userID int64) error
}

// ProfileHandler はプロフィール編集・パスワード変更・退会のHTTPハンドラー。
type ProfileHandler struct {
	web     *Web
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(web *Web, service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{web: web, service: service}
}

type profileData struct {
	User *model.User
	Form *user.ProfileForm
}

// Show はプロフィール画面を表示する。
// GET /profile
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Profile(r.Context())
	if err != nil {
		h.web.respondAPIError(w, r, err, "Profile", "/admin")
		return
	}
	h.web.render(w, r, http.StatusOK, "profile", "Profile", profileData{
		User: u,
		Form: user.ProfileFormFromUser(u),
	})
}

// Update はプロフィールを更新する。
// POST /profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	form := &user.ProfileForm{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if _, err := h.service.UpdateProfile(r.Context(), form); err != nil {
		h.failed(w, r, err, profileData{User: h.currentUser(r), Form: form})
		return
	}

	h.forgetProfile(r)
	http.Redirect(w, r, withNotice("/profile", "profile-updated"), http.StatusSeeOther)
}

// ChangePassword はパスワードを変更する。
// POST /profile/password
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	form := &user.PasswordForm{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err := h.service.ChangePassword(r.Context(), form); err != nil {
		u := h.currentUser(r)
		h.failed(w, r, err, profileData{User: u, Form: user.ProfileFormFromUser(u)})
		return
	}

	http.Redirect(w, r, withNotice("/profile", "password-changed"), http.StatusSeeOther)
}

// Deactivate はアカウントを無効化し、ログアウトする。
// POST /profile/deactivate
func (h *ProfileHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), currentUserID(r)); err != nil {
		h.web.respondAPIError(w, r, err, "Account", "/profile")
		return
	}

	h.web.expireSession(w, r)
	http.Redirect(w, r, withNotice("/", "account-deactivated"), http.StatusSeeOther)
}

func (h *ProfileHandler) failed(w http.ResponseWriter, r *http.Request, err error, data profileData) {
	if msg, ok := formError(err); ok {
		h.web.renderWithError(w, r, http.StatusUnprocessableEntity, "profile", "Profile", data, msg)
		return
	}
	h.web.respondAPIError(w, r, err, "Profile", "/profile")
}

// currentUser はエラー時の再表示に使うユーザーを返す。取得できない場合はnil。
func (h *ProfileHandler) currentUser(r *http.Request) *model.User {
	if h.web.profiles == nil {
		return nil
	}
	return h.web.profiles.Profile(r)
}

func (h *ProfileHandler) forgetProfile(r *http.Request) {
	if token := session.TokenFromContext(r.Context()); token != "" && h.web.profiles != nil {
		h.web.profiles.Forget(token)
	}
}

// compile-time interface check
var _ ProfileServiceInterface = (*user.Service)(nil)
