package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hitoshi/readerdigest/internal/model"
)

// ProfileLoader はログインユーザーのプロフィールをバックエンドから取得する。
type ProfileLoader func(ctx context.Context) (*model.User, error)

// ProfileCache はアクセストークンごとのユーザープロフィールをTTL付きで保持する。
// ページ描画ごとに /auth/me を呼ばないために使う。
type ProfileCache struct {
	lru *expirable.LRU[string, *model.User]
}

// NewProfileCache はProfileCacheの新しいインスタンスを生成する。
func NewProfileCache(size int, ttl time.Duration) *ProfileCache {
	if size <= 0 {
		size = 1024
	}
	return &ProfileCache{
		lru: expirable.NewLRU[string, *model.User](size, nil, ttl),
	}
}

// Get はトークンに対応するプロフィールを返す。
// キャッシュにない場合はloadで取得して保存する。取得エラーはキャッシュしない。
func (c *ProfileCache) Get(ctx context.Context, token string, load ProfileLoader) (*model.User, error) {
	if u, ok := c.lru.Get(token); ok {
		return u, nil
	}
	u, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if u != nil {
		c.lru.Add(token, u)
	}
	return u, nil
}

// Invalidate はトークンに対応するプロフィールを破棄する。
func (c *ProfileCache) Invalidate(token string) {
	c.lru.Remove(token)
}

// Len はキャッシュ件数を返す。
func (c *ProfileCache) Len() int {
	return c.lru.Len()
}
