package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/readerdigest/internal/apiclient"
	"github.com/hitoshi/readerdigest/internal/article"
	"github.com/hitoshi/readerdigest/internal/auth"
	"github.com/hitoshi/readerdigest/internal/digest"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/session"
	"github.com/hitoshi/readerdigest/internal/user"
	"github.com/hitoshi/readerdigest/internal/view"
)

var testNow = time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)

// --- 描画 ---

// renderedPage はstubRendererが記録した描画内容。
type renderedPage struct {
	status int
	name   string
	page   *view.Page
}

type stubRenderer struct {
	calls []renderedPage
}

func (s *stubRenderer) Render(w http.ResponseWriter, status int, name string, page *view.Page) {
	s.calls = append(s.calls, renderedPage{status: status, name: name, page: page})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, name)
}

func (s *stubRenderer) last(t *testing.T) renderedPage {
	t.Helper()
	if len(s.calls) == 0 {
		t.Fatal("no page was rendered")
	}
	return s.calls[len(s.calls)-1]
}

type stubProfiles struct {
	user      *model.User
	forgotten []string
}

func (s *stubProfiles) Profile(r *http.Request) *model.User { return s.user }
func (s *stubProfiles) Forget(token string)                 { s.forgotten = append(s.forgotten, token) }

func newTestWeb() (*Web, *stubRenderer, *stubProfiles) {
	renderer := &stubRenderer{}
	profiles := &stubProfiles{}
	web := NewWeb(renderer, profiles, session.CookieOptions{MaxAge: 3600}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	web.now = func() time.Time { return testNow }
	return web, renderer, profiles
}

// --- リクエスト生成 ---

// withSession はログイン済みのリクエストにする。
func withSession(r *http.Request, subject string) *http.Request {
	s := &session.Session{Token: "token-" + subject, Subject: subject, ExpiresAt: testNow.Add(time.Hour)}
	return r.WithContext(session.WithSession(r.Context(), s))
}

// withURLParam はchiのURLパラメータを設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func newFormRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func apiError(kind apiclient.Kind, status int) error {
	return &apiclient.Error{Kind: kind, StatusCode: status, Message: http.StatusText(status)}
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- サービスのモック ---

type mockAuthService struct {
	beginSignInFunc     func(ctx context.Context, redirectTo string) (*auth.SignInStart, error)
	completeSignInFunc  func(ctx context.Context, sessionID string, params auth.CallbackParams) (*auth.SignInResult, error)
	signOutFunc         func(ctx context.Context, sessionID, redirectTo string) string
	currentIdentityFunc func(ctx context.Context, sessionID string) (*auth.Claims, error)
}

func (m *mockAuthService) BeginSignIn(ctx context.Context, redirectTo string) (*auth.SignInStart, error) {
	return m.beginSignInFunc(ctx, redirectTo)
}

func (m *mockAuthService) CompleteSignIn(ctx context.Context, sessionID string, params auth.CallbackParams) (*auth.SignInResult, error) {
	return m.completeSignInFunc(ctx, sessionID, params)
}

func (m *mockAuthService) SignOut(ctx context.Context, sessionID, redirectTo string) string {
	return m.signOutFunc(ctx, sessionID, redirectTo)
}

func (m *mockAuthService) CurrentIdentity(ctx context.Context, sessionID string) (*auth.Claims, error) {
	return m.currentIdentityFunc(ctx, sessionID)
}

type mockAccountService struct {
	loginFunc             func(ctx context.Context, form *user.LoginForm) (*model.AuthResult, error)
	registerFunc          func(ctx context.Context, form *user.RegisterForm) (*model.AuthResult, error)
	logoutCalled          bool
	checkAvailabilityFunc func(ctx context.Context, form *user.AvailabilityForm) (*model.AvailabilityResult, error)
	validatePasswordFunc  func(ctx context.Context, password string) (*model.PasswordCheckResult, error)
}

func (m *mockAccountService) Login(ctx context.Context, form *user.LoginForm) (*model.AuthResult, error) {
	return m.loginFunc(ctx, form)
}

func (m *mockAccountService) Register(ctx context.Context, form *user.RegisterForm) (*model.AuthResult, error) {
	return m.registerFunc(ctx, form)
}

func (m *mockAccountService) Logout(ctx context.Context) { m.logoutCalled = true }

func (m *mockAccountService) CheckAvailability(ctx context.Context, form *user.AvailabilityForm) (*model.AvailabilityResult, error) {
	return m.checkAvailabilityFunc(ctx, form)
}

func (m *mockAccountService) ValidatePassword(ctx context.Context, password string) (*model.PasswordCheckResult, error) {
	return m.validatePasswordFunc(ctx, password)
}

type mockArticleService struct {
	listPublicFunc func(ctx context.Context, f article.PublicFilter) (*model.ArticleList, error)
	latestFunc     func(ctx context.Context) ([]model.Article, error)
	listOwnFunc    func(ctx context.Context, userID int64, page int) (*model.ArticleList, error)
	getFunc        func(ctx context.Context, id int64) (*model.Article, error)
	createFunc     func(ctx context.Context, form *article.Form) (*model.Article, error)
	updateFunc     func(ctx context.Context, id int64, form *article.Form) (*model.Article, error)
	deleteFunc     func(ctx context.Context, id int64) error
}

func (m *mockArticleService) ListPublic(ctx context.Context, f article.PublicFilter) (*model.ArticleList, error) {
	return m.listPublicFunc(ctx, f)
}

func (m *mockArticleService) Latest(ctx context.Context) ([]model.Article, error) {
	return m.latestFunc(ctx)
}

func (m *mockArticleService) ListOwn(ctx context.Context, userID int64, page int) (*model.ArticleList, error) {
	return m.listOwnFunc(ctx, userID, page)
}

func (m *mockArticleService) Get(ctx context.Context, id int64) (*model.Article, error) {
	return m.getFunc(ctx, id)
}

func (m *mockArticleService) Create(ctx context.Context, form *article.Form) (*model.Article, error) {
	return m.createFunc(ctx, form)
}

func (m *mockArticleService) Update(ctx context.Context, id int64, form *article.Form) (*model.Article, error) {
	return m.updateFunc(ctx, id, form)
}

func (m *mockArticleService) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

type mockDigestService struct {
	listPublicFunc     func(ctx context.Context, page int) (*model.DigestList, error)
	latestFunc         func(ctx context.Context) ([]model.Digest, error)
	getPublicFunc      func(ctx context.Context, id int64) (*model.Digest, error)
	getFunc            func(ctx context.Context, id int64) (*model.Digest, error)
	listOwnFunc        func(ctx context.Context, userID int64, f digest.AdminFilter) (*model.DigestList, error)
	countFunc          func(ctx context.Context, userID int64) (int, error)
	availableWeeksFunc func(ctx context.Context) ([]model.AvailableWeek, error)
	generateFunc       func(ctx context.Context, form *digest.GenerateForm) (*digest.Form, *model.GeneratedDigest, error)
	createFunc         func(ctx context.Context, form *digest.Form, publish bool) (*model.Digest, error)
	updateFunc         func(ctx context.Context, id int64, form *digest.Form, publish bool) (*model.Digest, error)
	deleteFunc         func(ctx context.Context, id int64) error
}

func (m *mockDigestService) ListPublic(ctx context.Context, page int) (*model.DigestList, error) {
	return m.listPublicFunc(ctx, page)
}

func (m *mockDigestService) Latest(ctx context.Context) ([]model.Digest, error) {
	return m.latestFunc(ctx)
}

func (m *mockDigestService) GetPublic(ctx context.Context, id int64) (*model.Digest, error) {
	return m.getPublicFunc(ctx, id)
}

func (m *mockDigestService) Get(ctx context.Context, id int64) (*model.Digest, error) {
	return m.getFunc(ctx, id)
}

func (m *mockDigestService) ListOwn(ctx context.Context, userID int64, f digest.AdminFilter) (*model.DigestList, error) {
	return m.listOwnFunc(ctx, userID, f)
}

func (m *mockDigestService) Count(ctx context.Context, userID int64) (int, error) {
	return m.countFunc(ctx, userID)
}

func (m *mockDigestService) AvailableWeeks(ctx context.Context) ([]model.AvailableWeek, error) {
	return m.availableWeeksFunc(ctx)
}

func (m *mockDigestService) Generate(ctx context.Context, form *digest.GenerateForm) (*digest.Form, *model.GeneratedDigest, error) {
	return m.generateFunc(ctx, form)
}

func (m *mockDigestService) Create(ctx context.Context, form *digest.Form, publish bool) (*model.Digest, error) {
	return m.createFunc(ctx, form, publish)
}

func (m *mockDigestService) Update(ctx context.Context, id int64, form *digest.Form, publish bool) (*model.Digest, error) {
	return m.updateFunc(ctx, id, form, publish)
}

func (m *mockDigestService) Delete(ctx context.Context, id int64) error {
	return m.deleteFunc(ctx, id)
}

type mockProfileService struct {
	profileFunc        func(ctx context.Context) (*model.User, error)
	updateProfileFunc  func(ctx context.Context, form *user.ProfileForm) (*model.User, error)
	changePasswordFunc func(ctx context.Context, form *user.PasswordForm) error
	deactivateFunc     func(ctx context.Context, userID int64) error
}

func (m *mockProfileService) Profile(ctx context.Context) (*model.User, error) {
	return m.profileFunc(ctx)
}

func (m *mockProfileService) UpdateProfile(ctx context.Context, form *user.ProfileForm) (*model.User, error) {
	return m.updateProfileFunc(ctx, form)
}

func (m *mockProfileService) ChangePassword(ctx context.Context, form *user.PasswordForm) error {
	return m.changePasswordFunc(ctx, form)
}

func (m *mockProfileService) Deactivate(ctx context.Context, userID int64) error {
	return m.deactivateFunc(ctx, userID)
}

type mockPreviewer struct {
	previewFunc func(ctx context.Context, rawURL string) (*model.URLPreview, error)
}

func (m *mockPreviewer) Preview(ctx context.Context, rawURL string) (*model.URLPreview, error) {
	return m.previewFunc(ctx, rawURL)
}

type mockAuthors struct {
	authorsFunc func(ctx context.Context) ([]model.User, error)
	authorFunc  func(ctx context.Context, id int64) (*model.User, error)
}

func (m *mockAuthors) Authors(ctx context.Context) ([]model.User, error) {
	if m.authorsFunc != nil {
		return m.authorsFunc(ctx)
	}
	return []model.User{}, nil
}

func (m *mockAuthors) Author(ctx context.Context, id int64) (*model.User, error) {
	if m.authorFunc != nil {
		return m.authorFunc(ctx, id)
	}
	return &model.User{ID: id}, nil
}
