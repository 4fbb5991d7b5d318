package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/readerdigest/internal/model"
)

// MemoryProviderSessionRepo はメモリ上にIdPセッションを保持するリポジトリ。
// DATABASE_URL未設定時に使う。プロセス再起動でセッションは失われる。
type MemoryProviderSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]model.ProviderSession
	now      func() time.Time
}

// NewMemoryProviderSessionRepo はMemoryProviderSessionRepoを生成する。
func NewMemoryProviderSessionRepo() *MemoryProviderSessionRepo {
	return &MemoryProviderSessionRepo{
		sessions: make(map[string]model.ProviderSession),
		now:      time.Now,
	}
}

// Create はセッションを作成する。
func (r *MemoryProviderSessionRepo) Create(_ context.Context, s *model.ProviderSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *MemoryProviderSessionRepo) FindByID(_ context.Context, id string) (*model.ProviderSession, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok || s.Expired(r.now()) {
		return nil, nil
	}
	return &s, nil
}

// Update はセッションを更新する。存在しない場合は何もしない。
func (r *MemoryProviderSessionRepo) Update(_ context.Context, s *model.ProviderSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.sessions[s.ID]
	if !ok {
		return nil
	}
	cur.Status = s.Status
	cur.Subject = s.Subject
	cur.Email = s.Email
	cur.Name = s.Name
	cur.IDToken = s.IDToken
	cur.ExpiresAt = s.ExpiresAt
	r.sessions[s.ID] = cur
	return nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MemoryProviderSessionRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// DeleteExpired は期限切れのセッションを削除する。
func (r *MemoryProviderSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// compile-time interface check
var _ ProviderSessionRepository = (*MemoryProviderSessionRepo)(nil)
