// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 無操作タイムアウトを超過したセッションレコードと、保持期間
// （デフォルト30日）を超過した配送済み通知を定期バッチで削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/taskdeck/internal/repository"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れセッションと古い配送済み通知の自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
//
// セッションの無操作判定はリクエスト処理時にも行われるが、二度と
// アクセスされないセッションはバックエンドに残り続けるため、
// このジョブが最終的な削除を担う。
type CleanupJob struct {
	db            Executor
	notifRepo     repository.NotificationRepository
	logger        *slog.Logger
	IdleTimeout   time.Duration // セッションの無操作タイムアウト
	RetentionDays int           // 配送済み通知の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(db Executor, notifRepo repository.NotificationRepository, logger *slog.Logger, idleTimeout time.Duration) *CleanupJob {
	return &CleanupJob{
		db:            db,
		notifRepo:     notifRepo,
		logger:        logger,
		IdleTimeout:   idleTimeout,
		RetentionDays: 30,
	}
}

// Run は期限切れセッションと古い配送済み通知を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	sessionCount, err := j.cleanupSessions(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -j.RetentionDays)
	notifCount, err := j.notifRepo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("通知クリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("通知クリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", sessionCount),
		slog.Int64("deleted_notifications", notifCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// cleanupSessions は最終アクティビティが無操作タイムアウトより
// 古いセッションレコードを削除する。
func (j *CleanupJob) cleanupSessions(ctx context.Context) (int64, error) {
	interval := fmt.Sprintf("%d seconds", int(j.IdleTimeout.Seconds()))

	query := `DELETE FROM sessions WHERE last_activity < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	return count, nil
}
