// Package cleanup は期限切れのIdPセッションの定期削除ジョブを提供する。
// サインインを途中で放棄したセッションや有効期限を過ぎたセッションを削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval は削除ジョブの既定の実行間隔。
const DefaultInterval = time.Hour

// ExpiredSessionDeleter は期限切れセッションを削除するストア。
// repository.ProviderSessionRepositoryが実装する。
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CleanupJob は期限切れIdPセッションの削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	store  ExpiredSessionDeleter
	logger *slog.Logger
	now    func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(store ExpiredSessionDeleter, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Run は現在時刻で期限切れのセッションを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()

	deleted, err := j.store.DeleteExpired(ctx, start)
	if err != nil {
		j.logger.Error("failed to delete expired provider sessions",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("provider session cleanup failed: %w", err)
	}

	j.logger.Info("provider session cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回実行し、その後intervalごとに実行する。
// ctxがキャンセルされるまでブロックする。個々の実行の失敗では停止しない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
