// Package repository はデータ永続化のインターフェースと実装を提供する。
// 永続化するのはIdP（Logto）とのサインインセッションのみで、記事・ダイジェストはバックエンドAPIが保持する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/readerdigest/internal/model"
)

// ProviderSessionRepository はIdPセッションの永続化インターフェース。
type ProviderSessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.ProviderSession) error

	// FindByID は指定IDのセッションを取得する。見つからない場合・期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ProviderSession, error)

	// Update はセッションの状態・クレーム・有効期限を更新する。
	Update(ctx context.Context, session *model.ProviderSession) error

	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error

	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
