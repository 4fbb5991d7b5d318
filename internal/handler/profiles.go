package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/session"
)

// ProfileFetcher はログインユーザーのプロフィールを取得する。apiclient.Clientが実装する。
type ProfileFetcher interface {
	Me(ctx context.Context) (*model.User, error)
}

// CachedProfiles はプロフィールキャッシュを使ってナビゲーション用のユーザーを返す。
type CachedProfiles struct {
	cache   *session.ProfileCache
	fetcher ProfileFetcher
	logger  *slog.Logger
}

// compile-time interface check
var _ ProfileSource = (*CachedProfiles)(nil)

// NewCachedProfiles はCachedProfilesを生成する。
func NewCachedProfiles(cache *session.ProfileCache, fetcher ProfileFetcher, logger *slog.Logger) *CachedProfiles {
	return &CachedProfiles{cache: cache, fetcher: fetcher, logger: logger}
}

// Profile はリクエストのセッションに対応するユーザーを返す。
// 取得に失敗した場合はnilを返し、ページ描画は続ける。
func (p *CachedProfiles) Profile(r *http.Request) *model.User {
	s, ok := session.FromContext(r.Context())
	if !ok {
		return nil
	}
	u, err := p.cache.Get(r.Context(), s.Token, p.fetcher.Me)
	if err != nil {
		p.logger.Debug("failed to load profile for navigation",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return u
}

// Forget はトークンに対応するプロフィールをキャッシュから破棄する。
func (p *CachedProfiles) Forget(token string) {
	p.cache.Invalidate(token)
}
