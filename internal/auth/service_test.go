package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/repository"
)

// --- モック定義 ---

type mockProvider struct {
	authCodeURLFn   func(state, verifier, callbackURL string) string
	exchangeFn      func(ctx context.Context, code, verifier, callbackURL string) (*Tokens, error)
	userInfoFn      func(ctx context.Context, accessToken string) ([]byte, error)
	endSessionURLFn func(idToken, postLogoutRedirectURI string) string
}

func (m *mockProvider) AuthCodeURL(state, verifier, callbackURL string) string {
	if m.authCodeURLFn != nil {
		return m.authCodeURLFn(state, verifier, callbackURL)
	}
	return "https://logto.example.com/oidc/auth?state=" + state
}

func (m *mockProvider) Exchange(ctx context.Context, code, verifier, callbackURL string) (*Tokens, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, code, verifier, callbackURL)
	}
	return &Tokens{AccessToken: "idp-access", IDToken: "idp-id-token"}, nil
}

func (m *mockProvider) UserInfo(ctx context.Context, accessToken string) ([]byte, error) {
	if m.userInfoFn != nil {
		return m.userInfoFn(ctx, accessToken)
	}
	return []byte(`{"sub":"logto-123","email":"alice@example.com","name":"Alice"}`), nil
}

func (m *mockProvider) EndSessionURL(idToken, postLogoutRedirectURI string) string {
	if m.endSessionURLFn != nil {
		return m.endSessionURLFn(idToken, postLogoutRedirectURI)
	}
	return "https://logto.example.com/oidc/session/end?id_token_hint=" + idToken + "&post_logout_redirect_uri=" + postLogoutRedirectURI
}

type mockExchanger struct {
	calls      int
	exchangeFn func(ctx context.Context, secret string, in model.LogtoExchangeRequest) (*model.AuthResult, error)
}

func (m *mockExchanger) ExchangeLogtoIdentity(ctx context.Context, secret string, in model.LogtoExchangeRequest) (*model.AuthResult, error) {
	m.calls++
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, secret, in)
	}
	return &model.AuthResult{AccessToken: "backend-token", User: &model.User{ID: 7, Username: "alice"}}, nil
}

type recordingMetrics struct {
	signIns []string
}

func (r *recordingMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (r *recordingMetrics) RecordBackendCall(string, int, time.Duration)         {}
func (r *recordingMetrics) RecordSignIn(result string)                           { r.signIns = append(r.signIns, result) }
func (r *recordingMetrics) RecordPreview(string)                                 {}

// --- compile-time interface checks ---
var _ IdentityProvider = (*mockProvider)(nil)
var _ TokenExchanger = (*mockExchanger)(nil)

// --- ヘルパー ---

func testConfig() ServiceConfig {
	return ServiceConfig{
		Configured:     true,
		BaseURL:        "https://digest.example.com",
		CallbackPath:   "/api/auth/logto/sign-in-callback",
		ExchangeSecret: "shared-secret",
		SessionMaxAge:  14 * 24 * time.Hour,
	}
}

func newTestService(provider IdentityProvider, repo repository.ProviderSessionRepository, exchanger TokenExchanger, cfg ServiceConfig) (*Service, *recordingMetrics) {
	m := &recordingMetrics{}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewService(provider, repo, exchanger, cfg, m, logger), m
}

// beginSignIn はサインインを開始し、セッションIDとstateを返す。
func beginSignIn(t *testing.T, svc *Service, repo repository.ProviderSessionRepository, redirectTo string) (string, string) {
	t.Helper()
	start, err := svc.BeginSignIn(context.Background(), redirectTo)
	if err != nil {
		t.Fatalf("BeginSignIn returned error: %v", err)
	}
	sess, err := repo.FindByID(context.Background(), start.SessionID)
	if err != nil || sess == nil {
		t.Fatalf("pending session not stored: %v", err)
	}
	return start.SessionID, sess.State
}

func assertSignInCode(t *testing.T, err error, want string) {
	t.Helper()
	var signInErr *SignInError
	if !errors.As(err, &signInErr) {
		t.Fatalf("expected *SignInError, got %v", err)
	}
	if signInErr.Code != want {
		t.Errorf("Code = %q, want %q", signInErr.Code, want)
	}
}

// assertSessionDeleted は失敗したサインインのIdPセッションが削除されていることを検証する。
func assertSessionDeleted(t *testing.T, repo repository.ProviderSessionRepository, id string) {
	t.Helper()
	sess, err := repo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if sess != nil {
		t.Errorf("provider session %q should be deleted after a failed callback, got status %q", id, sess.Status)
	}
}

// --- BeginSignIn ---

func TestBeginSignIn_CreatesPendingSession(t *testing.T) {
	repo := repository.NewMemoryProviderSessionRepo()
	var gotVerifier, gotCallback string
	provider := &mockProvider{
		authCodeURLFn: func(state, verifier, callbackURL string) string {
			gotVerifier = verifier
			gotCallback = callbackURL
			return "https://logto.example.com/oidc/auth?state=" + state
		},
	}
	svc, _ := newTestService(provider, repo, &mockExchanger{}, testConfig())

	start, err := svc.BeginSignIn(context.Background(), "/admin/digests")
	if err != nil {
		t.Fatalf("BeginSignIn returned error: %v", err)
	}
	if len(start.SessionID) != 64 {
		t.Errorf("SessionID length = %d, want 64", len(start.SessionID))
	}

	sess, _ := repo.FindByID(context.Background(), start.SessionID)
	if sess == nil {
		t.Fatal("session should be stored")
	}
	if sess.Status != model.ProviderSessionPending {
		t.Errorf("Status = %q, want pending", sess.Status)
	}
	if sess.CodeVerifier != gotVerifier {
		t.Error("stored verifier should match the one used for the challenge")
	}
	if !strings.Contains(start.AuthURL, "state="+sess.State) {
		t.Errorf("AuthURL %q should carry state", start.AuthURL)
	}
	wantCallback := "https://digest.example.com/api/auth/logto/sign-in-callback?redirectTo=%2Fadmin%2Fdigests"
	if gotCallback != wantCallback {
		t.Errorf("callback = %q, want %q", gotCallback, wantCallback)
	}
	if sess.ExpiresAt.Sub(sess.CreatedAt) != PendingSessionTTL {
		t.Errorf("TTL = %v, want %v", sess.ExpiresAt.Sub(sess.CreatedAt), PendingSessionTTL)
	}
}

func TestBeginSignIn_NotConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Configured = false
	svc, _ := newTestService(&mockProvider{}, repository.NewMemoryProviderSessionRepo(), &mockExchanger{}, cfg)

	_, err := svc.BeginSignIn(context.Background(), "")
	assertSignInCode(t, err, CodeConfig)
}

func TestBeginSignIn_MissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.ExchangeSecret = ""
	svc, _ := newTestService(&mockProvider{}, repository.NewMemoryProviderSessionRepo(), &mockExchanger{}, cfg)

	_, err := svc.BeginSignIn(context.Background(), "")
	assertSignInCode(t, err, CodeConfig)
}

// --- CompleteSignIn ---

func TestCompleteSignIn_Success(t *testing.T) {
	repo := repository.NewMemoryProviderSessionRepo()
	exchanger := &mockExchanger{}
	var gotSecret string
	var gotReq model.LogtoExchangeRequest
	exchanger.exchangeFn = func(_ context.Context, secret string, in model.LogtoExchangeRequest) (*model.AuthResult, error) {
		gotSecret = secret
		gotReq = in
		return &model.AuthResult{AccessToken: "backend-token", User: &model.User{ID: 7}}, nil
	}
	svc, m := newTestService(&mockProvider{}, repo, exchanger, testConfig())
	id, state := beginSignIn(t, svc, repo, "/admin/digests")

	result, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{Code: "code-1", State: state})
	if err != nil {
		t.Fatalf("CompleteSignIn returned error: %v", err)
	}
	if result.AccessToken != "backend-token" {
		t.Errorf("AccessToken = %q", result.AccessToken)
	}
	if result.RedirectTo != "/admin/digests" {
		t.Errorf("RedirectTo = %q, want /admin/digests", result.RedirectTo)
	}
	if gotSecret != "shared-secret" {
		t.Errorf("secret = %q", gotSecret)
	}
	if gotReq.LogtoID != "logto-123" || gotReq.Email != "alice@example.com" || gotReq.DisplayName != "Alice" {
		t.Errorf("exchange request = %+v", gotReq)
	}

	sess, _ := repo.FindByID(context.Background(), id)
	if sess == nil || sess.Status != model.ProviderSessionActive {
		t.Fatalf("session should be active, got %+v", sess)
	}
	if sess.IDToken != "idp-id-token" || sess.Subject != "logto-123" {
		t.Errorf("session claims not stored: %+v", sess)
	}
	if len(m.signIns) != 1 || m.signIns[0] != "success" {
		t.Errorf("metrics = %v, want [success]", m.signIns)
	}
}

func TestCompleteSignIn_MissingEmail_DoesNotExchange(t *testing.T) {
	repo := repository.NewMemoryProviderSessionRepo()
	exchanger := &mockExchanger{}
	provider := &mockProvider{
		userInfoFn: func(context.Context, string) ([]byte, error) {
			return []byte(`{"sub":"logto-123","name":"No Mail"}`), nil
		},
	}
	svc, m := newTestService(provider, repo, exchanger, testConfig())
	id, state := beginSignIn(t, svc, repo, "")

	_, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{Code: "code", State: state})
	assertSignInCode(t, err, CodeProfile)
	if !errors.Is(err, ErrMissingEmail) {
		t.Errorf("expected ErrMissingEmail, got %v", err)
	}
	if exchanger.calls != 0 {
		t.Errorf("exchange calls = %d, want 0", exchanger.calls)
	}
	assertSessionDeleted(t, repo, id)
	if len(m.signIns) != 1 || m.signIns[0] != CodeProfile {
		t.Errorf("metrics = %v", m.signIns)
	}
}

func TestCompleteSignIn_CallbackFailures(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
		params   func(state string) CallbackParams
		session  func(id string) string
	}{
		{
			name:     "state不一致",
			provider: &mockProvider{},
			params:   func(string) CallbackParams { return CallbackParams{Code: "c", State: "forged"} },
		},
		{
			name:     "IdPのエラー",
			provider: &mockProvider{},
			params: func(state string) CallbackParams {
				return CallbackParams{State: state, Error: "access_denied"}
			},
		},
		{
			name:     "コードなし",
			provider: &mockProvider{},
			params:   func(state string) CallbackParams { return CallbackParams{State: state} },
		},
		{
			name: "コード交換失敗",
			provider: &mockProvider{
				exchangeFn: func(context.Context, string, string, string) (*Tokens, error) {
					return nil, errors.New("invalid_grant")
				},
			},
			params: func(state string) CallbackParams { return CallbackParams{Code: "c", State: state} },
		},
		{
			name: "ユーザー情報取得失敗",
			provider: &mockProvider{
				userInfoFn: func(context.Context, string) ([]byte, error) {
					return nil, errors.New("status 500")
				},
			},
			params: func(state string) CallbackParams { return CallbackParams{Code: "c", State: state} },
		},
		{
			name:     "未知のセッション",
			provider: &mockProvider{},
			params:   func(state string) CallbackParams { return CallbackParams{Code: "c", State: state} },
			session:  func(string) string { return "unknown" },
		},
		{
			name:     "セッションCookieなし",
			provider: &mockProvider{},
			params:   func(state string) CallbackParams { return CallbackParams{Code: "c", State: state} },
			session:  func(string) string { return "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryProviderSessionRepo()
			exchanger := &mockExchanger{}
			svc, _ := newTestService(tt.provider, repo, exchanger, testConfig())
			pendingID, state := beginSignIn(t, svc, repo, "")
			id := pendingID
			if tt.session != nil {
				id = tt.session(pendingID)
			}

			_, err := svc.CompleteSignIn(context.Background(), id, tt.params(state))
			assertSignInCode(t, err, CodeCallback)
			if exchanger.calls != 0 {
				t.Errorf("exchange calls = %d, want 0", exchanger.calls)
			}
			if tt.session == nil {
				assertSessionDeleted(t, repo, pendingID)
			} else if sess, _ := repo.FindByID(context.Background(), pendingID); sess == nil {
				t.Error("an unrelated pending session should be kept")
			}
		})
	}
}

func TestCompleteSignIn_SessionIsSingleUse(t *testing.T) {
	repo := repository.NewMemoryProviderSessionRepo()
	svc, _ := newTestService(&mockProvider{}, repo, &mockExchanger{}, testConfig())
	id, state := beginSignIn(t, svc, repo, "")

	if _, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{Code: "c", State: state}); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	_, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{Code: "c", State: state})
	assertSignInCode(t, err, CodeCallback)
	assertSessionDeleted(t, repo, id)
}

func TestCompleteSignIn_ExchangeFailure(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, string, model.LogtoExchangeRequest) (*model.AuthResult, error)
	}{
		{"バックエンドエラー", func(context.Context, string, model.LogtoExchangeRequest) (*model.AuthResult, error) {
			return nil, errors.New("status 502")
		}},
		{"空のトークン", func(context.Context, string, model.LogtoExchangeRequest) (*model.AuthResult, error) {
			return &model.AuthResult{}, nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryProviderSessionRepo()
			svc, _ := newTestService(&mockProvider{}, repo, &mockExchanger{exchangeFn: tt.fn}, testConfig())
			id, state := beginSignIn(t, svc, repo, "")

			_, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{Code: "c", State: state})
			assertSignInCode(t, err, CodeExchange)
			assertSessionDeleted(t, repo, id)
		})
	}
}

func TestCompleteSignIn_UnsafeRedirectFallsBack(t *testing.T) {
	repo := repository.NewMemoryProviderSessionRepo()
	svc, _ := newTestService(&mockProvider{}, repo, &mockExchanger{}, testConfig())
	id, state := beginSignIn(t, svc, repo, "")

	result, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{
		Code: "c", State: state, RedirectTo: "https://evil.example.com",
	})
	if err != nil {
		t.Fatalf("CompleteSignIn returned error: %v", err)
	}
	if result.RedirectTo != DefaultRedirect {
		t.Errorf("RedirectTo = %q, want %q", result.RedirectTo, DefaultRedirect)
	}
}

// --- SignOut / CurrentIdentity ---

func TestSignOut_DeletesSessionAndUsesIDToken(t *testing.T) {
	repo := repository.NewMemoryProviderSessionRepo()
	svc, _ := newTestService(&mockProvider{}, repo, &mockExchanger{}, testConfig())
	id, state := beginSignIn(t, svc, repo, "")
	if _, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{Code: "c", State: state}); err != nil {
		t.Fatalf("CompleteSignIn returned error: %v", err)
	}

	got := svc.SignOut(context.Background(), id, "/public/digests")
	if !strings.Contains(got, "id_token_hint=idp-id-token") {
		t.Errorf("end session URL %q should carry id token", got)
	}
	if !strings.Contains(got, "post_logout_redirect_uri=https://digest.example.com/public/digests") {
		t.Errorf("end session URL %q should carry post logout redirect", got)
	}
	if sess, _ := repo.FindByID(context.Background(), id); sess != nil {
		t.Error("session should be deleted")
	}
}

func TestSignOut_NotConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Configured = false
	svc, _ := newTestService(&mockProvider{}, repository.NewMemoryProviderSessionRepo(), &mockExchanger{}, cfg)

	if got := svc.SignOut(context.Background(), "", ""); got != "https://digest.example.com" {
		t.Errorf("SignOut = %q, want base URL", got)
	}
}

func TestCurrentIdentity(t *testing.T) {
	repo := repository.NewMemoryProviderSessionRepo()
	svc, _ := newTestService(&mockProvider{}, repo, &mockExchanger{}, testConfig())
	id, state := beginSignIn(t, svc, repo, "")

	// コールバック前は未認証
	if _, err := svc.CurrentIdentity(context.Background(), id); !errors.Is(err, ErrNoProviderSession) {
		t.Errorf("pending session: err = %v, want ErrNoProviderSession", err)
	}

	if _, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{Code: "c", State: state}); err != nil {
		t.Fatalf("CompleteSignIn returned error: %v", err)
	}
	claims, err := svc.CurrentIdentity(context.Background(), id)
	if err != nil {
		t.Fatalf("CurrentIdentity returned error: %v", err)
	}
	if claims.Subject != "logto-123" || claims.Email != "alice@example.com" {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := svc.CurrentIdentity(context.Background(), ""); !errors.Is(err, ErrNoProviderSession) {
		t.Errorf("empty id: err = %v", err)
	}
}

func TestCompleteSignIn_ExpiredSessionIsDeleted(t *testing.T) {
	repo := repository.NewMemoryProviderSessionRepo()
	svc, _ := newTestService(&mockProvider{}, repo, &mockExchanger{}, testConfig())
	id, state := beginSignIn(t, svc, repo, "")

	svc.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err := svc.CompleteSignIn(context.Background(), id, CallbackParams{Code: "c", State: state})
	assertSignInCode(t, err, CodeCallback)
	assertSessionDeleted(t, repo, id)
}
