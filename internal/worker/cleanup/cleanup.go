// Package cleanup は失効トークンの自動削除ジョブを提供する。
// 有効期限を過ぎた失効レコードは認証判定に影響しないため、
// 定期バッチで削除してテーブルの肥大化を防ぐ。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TokenPruner は期限切れ失効レコードの削除インターフェース。
// repository.TokenRepositoryの部分集合として定義する。
type TokenPruner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RevocationRecorder は削除件数のメトリクス記録インターフェース。
type RevocationRecorder interface {
	RecordTokensRevoked(count int)
}

// CleanupJob は期限切れ失効トークンの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	pruner   TokenPruner
	logger   *slog.Logger
	recorder RevocationRecorder
	now      func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// recorderはnilを許容する。
func NewCleanupJob(pruner TokenPruner, logger *slog.Logger, recorder RevocationRecorder) *CleanupJob {
	return &CleanupJob{
		pruner:   pruner,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// Run は有効期限を過ぎた失効レコードを削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.pruner.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("失効トークンのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("失効トークンのクリーンアップに失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordTokensRevoked(int(deletedCount))
	}

	duration := time.Since(start)
	j.logger.Info("失効トークンのクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunPeriodic はintervalごとにRunを実行し続ける。
// コンテキストのキャンセルで停止する。起動直後に1回実行する。
func (j *CleanupJob) RunPeriodic(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("初回クリーンアップに失敗しました", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("定期クリーンアップに失敗しました", slog.String("error", err.Error()))
			}
		case <-ctx.Done():
			return
		}
	}
}
