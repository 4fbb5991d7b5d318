// Package auth はLogtoによるサインインフローと、バックエンドのアクセストークンへの交換を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/readerdigest/internal/metrics"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/repository"
)

// PendingSessionTTL はサインイン開始からコールバックまでの猶予。
const PendingSessionTTL = 10 * time.Minute

// ErrNoProviderSession は有効なIdPセッションがない場合のエラー。
var ErrNoProviderSession = errors.New("no active provider session")

// IdentityProvider はOIDC認可コードフローを行うIdPのインターフェース。
type IdentityProvider interface {
	// AuthCodeURL は認可エンドポイントのURLを生成する。
	AuthCodeURL(state, verifier, callbackURL string) string
	// Exchange は認可コードをトークンに交換する。
	Exchange(ctx context.Context, code, verifier, callbackURL string) (*Tokens, error)
	// UserInfo はユーザー情報エンドポイントのレスポンスボディを返す。
	UserInfo(ctx context.Context, accessToken string) ([]byte, error)
	// EndSessionURL はIdPのログアウトURLを生成する。
	EndSessionURL(idToken, postLogoutRedirectURI string) string
}

// TokenExchanger はIdPのIDをバックエンドのアクセストークンに交換する。
// apiclient.Clientが実装する。
type TokenExchanger interface {
	ExchangeLogtoIdentity(ctx context.Context, secret string, in model.LogtoExchangeRequest) (*model.AuthResult, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	Configured     bool          // LogtoのエンドポイントとアプリIDが設定済みか
	BaseURL        string        // 公開オリジン
	CallbackPath   string        // コールバックのパス
	ExchangeSecret string        // トークン交換の共有シークレット
	SessionMaxAge  time.Duration // サインイン完了後のIdPセッション有効期間
}

// Service はサインインフローのビジネスロジックを提供する。
type Service struct {
	provider  IdentityProvider
	sessions  repository.ProviderSessionRepository
	exchanger TokenExchanger
	config    ServiceConfig
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	provider IdentityProvider,
	sessions repository.ProviderSessionRepository,
	exchanger TokenExchanger,
	config ServiceConfig,
	m metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Service{
		provider:  provider,
		sessions:  sessions,
		exchanger: exchanger,
		config:    config,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// SignInStart はサインイン開始の結果。
type SignInStart struct {
	SessionID string
	AuthURL   string
}

// CallbackParams はコールバックで受け取るクエリパラメータ。
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
	RedirectTo       string
}

// SignInResult はサインイン完了の結果。
type SignInResult struct {
	AccessToken string
	User        *model.User
	RedirectTo  string
}

// BeginSignIn はIdPセッションを作成し、認可エンドポイントのURLを返す。
func (s *Service) BeginSignIn(ctx context.Context, redirectTo string) (*SignInStart, error) {
	if err := s.checkConfig(); err != nil {
		return nil, err
	}

	id, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	state, err := randomHex(16)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	now := s.now()
	sess := &model.ProviderSession{
		ID:           id,
		State:        state,
		CodeVerifier: verifier,
		CallbackURL:  s.callbackURL(redirectTo),
		RedirectTo:   redirectTo,
		Status:       model.ProviderSessionPending,
		ExpiresAt:    now.Add(PendingSessionTTL),
		CreatedAt:    now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save provider session: %w", err)
	}

	return &SignInStart{
		SessionID: id,
		AuthURL:   s.provider.AuthCodeURL(state, verifier, sess.CallbackURL),
	}, nil
}

// CompleteSignIn はコールバックを処理し、バックエンドのアクセストークンを取得する。
// 失敗時は常に*SignInErrorを返す。
func (s *Service) CompleteSignIn(ctx context.Context, sessionID string, params CallbackParams) (*SignInResult, error) {
	result, err := s.completeSignIn(ctx, sessionID, params)

	var signInErr *SignInError
	if errors.As(err, &signInErr) {
		s.metrics.RecordSignIn(signInErr.Code)
		s.logger.Warn("サインインに失敗しました",
			slog.String("code", signInErr.Code),
			slog.String("error", signInErr.Error()),
		)
		return nil, err
	}
	s.metrics.RecordSignIn("success")
	return result, nil
}

func (s *Service) completeSignIn(ctx context.Context, sessionID string, params CallbackParams) (*SignInResult, error) {
	if err := s.checkConfig(); err != nil {
		return nil, err
	}

	// 1. 保留中のIdPセッションを取得し、stateを照合
	if sessionID == "" {
		return nil, signInError(CodeCallback, errors.New("provider session cookie is missing"))
	}
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, signInError(CodeCallback, err)
	}
	if sess == nil {
		return nil, signInError(CodeCallback, errors.New("provider session not found"))
	}

	// 失敗したセッションのCookieはハンドラーで破棄されるため、行も残さない
	result, err := s.finishSignIn(ctx, sess, params)
	if err != nil {
		s.discardSession(ctx, sess.ID)
		return nil, err
	}
	return result, nil
}

func (s *Service) finishSignIn(ctx context.Context, sess *model.ProviderSession, params CallbackParams) (*SignInResult, error) {
	if sess.Status != model.ProviderSessionPending || sess.Expired(s.now()) {
		return nil, signInError(CodeCallback, errors.New("provider session is not pending or has expired"))
	}
	if params.Error != "" {
		return nil, signInError(CodeCallback, fmt.Errorf("provider returned error: %s %s", params.Error, params.ErrorDescription))
	}
	if subtle.ConstantTimeCompare([]byte(params.State), []byte(sess.State)) != 1 {
		return nil, signInError(CodeCallback, errors.New("state mismatch"))
	}
	if params.Code == "" {
		return nil, signInError(CodeCallback, errors.New("authorization code is missing"))
	}

	// 2. 認可コードをトークンに交換
	tokens, err := s.provider.Exchange(ctx, params.Code, sess.CodeVerifier, sess.CallbackURL)
	if err != nil {
		return nil, signInError(CodeCallback, err)
	}

	// 3. ユーザー情報を取得してクレームを検証
	doc, err := s.provider.UserInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, signInError(CodeCallback, err)
	}
	claims, err := DecodeClaims(doc)
	if err != nil {
		return nil, signInError(CodeProfile, err)
	}

	// 4. バックエンドのアクセストークンに交換
	auth, err := s.exchanger.ExchangeLogtoIdentity(ctx, s.config.ExchangeSecret, model.LogtoExchangeRequest{
		LogtoID:     claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName(),
		FirstName:   claims.GivenName,
		LastName:    claims.FamilyName,
		Username:    claims.Username,
	})
	if err != nil {
		return nil, signInError(CodeExchange, err)
	}
	if auth == nil || auth.AccessToken == "" {
		return nil, signInError(CodeExchange, errors.New("empty access token"))
	}

	// 5. IdPセッションを有効化
	sess.Status = model.ProviderSessionActive
	sess.Subject = claims.Subject
	sess.Email = claims.Email
	sess.Name = claims.DisplayName()
	sess.IDToken = tokens.IDToken
	sess.ExpiresAt = s.now().Add(s.config.SessionMaxAge)
	if err := s.sessions.Update(ctx, sess); err != nil {
		// トークン交換は成功しているため、サインイン自体は継続する
		s.logger.Error("IdPセッションの更新に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	redirectTo := params.RedirectTo
	if redirectTo == "" {
		redirectTo = sess.RedirectTo
	}

	s.logger.Info("サインインしました",
		slog.String("subject", claims.Subject),
	)

	return &SignInResult{
		AccessToken: auth.AccessToken,
		User:        auth.User,
		RedirectTo:  SanitizeRedirect(redirectTo),
	}, nil
}

func (s *Service) discardSession(ctx context.Context, id string) {
	if err := s.sessions.DeleteByID(ctx, id); err != nil {
		s.logger.Error("IdPセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// SignOut はIdPセッションを破棄し、IdPのログアウトURLを返す。
// IdPが未設定の場合は公開オリジンへのURLを返す。
func (s *Service) SignOut(ctx context.Context, sessionID, redirectTo string) string {
	postLogout := s.postLogoutURL(redirectTo)
	if !s.config.Configured {
		return postLogout
	}

	var idToken string
	if sessionID != "" {
		if sess, err := s.sessions.FindByID(ctx, sessionID); err == nil && sess != nil {
			idToken = sess.IDToken
		}
		s.discardSession(ctx, sessionID)
	}

	return s.provider.EndSessionURL(idToken, postLogout)
}

// CurrentIdentity は有効なIdPセッションのクレームを返す。
func (s *Service) CurrentIdentity(ctx context.Context, sessionID string) (*Claims, error) {
	if sessionID == "" {
		return nil, ErrNoProviderSession
	}
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find provider session: %w", err)
	}
	if sess == nil || sess.Status != model.ProviderSessionActive || sess.Expired(s.now()) {
		return nil, ErrNoProviderSession
	}
	return &Claims{
		Subject: sess.Subject,
		Email:   sess.Email,
		Name:    sess.Name,
	}, nil
}

// checkConfig はIdPと共有シークレットが設定済みかを確認する。
func (s *Service) checkConfig() error {
	if !s.config.Configured {
		return signInError(CodeConfig, errors.New("logto endpoint or app ID is not configured"))
	}
	if s.config.ExchangeSecret == "" {
		return signInError(CodeConfig, errors.New("logto exchange secret is not configured"))
	}
	return nil
}

// callbackURL はコールバックURLを組み立てる。redirectToがあればクエリに含める。
func (s *Service) callbackURL(redirectTo string) string {
	u := s.config.BaseURL + s.config.CallbackPath
	if redirectTo == "" {
		return u
	}
	return u + "?" + url.Values{"redirectTo": {redirectTo}}.Encode()
}

// postLogoutURL はログアウト後の遷移先を絶対URLで返す。
func (s *Service) postLogoutURL(redirectTo string) string {
	if redirectTo == "" {
		return s.config.BaseURL
	}
	return s.config.BaseURL + SanitizeRedirect(redirectTo)
}

// randomHex は暗号的に安全な乱数の16進文字列を生成する。
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
