package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// Logto OIDCのエンドポイントパス。
const (
	logtoAuthPath       = "/oidc/auth"
	logtoTokenPath      = "/oidc/token"
	logtoUserInfoPath   = "/oidc/me"
	logtoEndSessionPath = "/oidc/session/end"

	maxUserInfoSize = 1 << 20
)

// LogtoConfig はLogtoプロバイダーの設定。
type LogtoConfig struct {
	Endpoint   string
	AppID      string
	AppSecret  string
	Scopes     []string
	HTTPClient *http.Client
}

// Tokens はトークンエンドポイントから取得したトークン。
type Tokens struct {
	AccessToken string
	IDToken     string
}

// LogtoProvider はLogtoとのOIDC認可コードフロー（PKCE）を提供する。
type LogtoProvider struct {
	oauth      oauth2.Config
	endpoint   string
	httpClient *http.Client
}

// NewLogtoProvider はLogtoProviderを生成する。
func NewLogtoProvider(cfg LogtoConfig) *LogtoProvider {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LogtoProvider{
		oauth: oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoint + logtoAuthPath,
				TokenURL:  endpoint + logtoTokenPath,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		endpoint:   endpoint,
		httpClient: httpClient,
	}
}

// config はリダイレクトURIを差し替えたOAuth2設定を返す。
// リダイレクトURIはredirectToを含むため、サインインごとに異なる。
func (p *LogtoProvider) config(callbackURL string) *oauth2.Config {
	c := p.oauth
	c.RedirectURL = callbackURL
	return &c
}

// AuthCodeURL は認可エンドポイントのURLを生成する。
func (p *LogtoProvider) AuthCodeURL(state, verifier, callbackURL string) string {
	return p.config(callbackURL).AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange は認可コードをトークンに交換する。
func (p *LogtoProvider) Exchange(ctx context.Context, code, verifier, callbackURL string) (*Tokens, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	tok, err := p.config(callbackURL).Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("empty access token in token response")
	}

	idToken, _ := tok.Extra("id_token").(string)
	return &Tokens{AccessToken: tok.AccessToken, IDToken: idToken}, nil
}

// UserInfo はユーザー情報エンドポイントのレスポンスボディを返す。
// 内容の検証はDecodeClaimsで行う。
func (p *LogtoProvider) UserInfo(ctx context.Context, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+logtoUserInfoPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info fetch failed with status %d", resp.StatusCode)
	}
	return body, nil
}

// EndSessionURL はIdPのログアウトURLを生成する。
func (p *LogtoProvider) EndSessionURL(idToken, postLogoutRedirectURI string) string {
	params := url.Values{
		"client_id":                {p.oauth.ClientID},
		"post_logout_redirect_uri": {postLogoutRedirectURI},
	}
	if idToken != "" {
		params.Set("id_token_hint", idToken)
	}
	return p.endpoint + logtoEndSessionPath + "?" + params.Encode()
}

// compile-time interface check
var _ IdentityProvider = (*LogtoProvider)(nil)
