package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/taskdeck/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。ステータスはpendingで登録される。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, task_id, worker_id, email, webhook_url, subject, body, status, attempts, last_error, created_at, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		n.ID, n.TaskID, n.WorkerID, n.Email, n.WebhookURL, n.Subject, n.Body, n.Status, n.Attempts, n.LastError, n.CreatedAt, n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListPending は未配送の通知を作成日時の昇順で返す。
// limitで一度に取得する件数を制限する。
func (r *PostgresNotificationRepo) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, worker_id, email, webhook_url, subject, body, status, attempts, last_error, created_at, sent_at
		 FROM notifications
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		model.NotificationStatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(&n.ID, &n.TaskID, &n.WorkerID, &n.Email, &n.WebhookURL, &n.Subject, &n.Body, &n.Status, &n.Attempts, &n.LastError, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// MarkSent は通知を配送済みに更新する。
func (r *PostgresNotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications
		 SET status = $2, attempts = attempts + 1, last_error = '', sent_at = $3
		 WHERE id = $1`,
		id, model.NotificationStatusSent, sentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification as sent: %w", err)
	}
	return nil
}

// MarkFailed は通知を配送失敗として記録する。
func (r *PostgresNotificationRepo) MarkFailed(ctx context.Context, id string, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications
		 SET status = $2, attempts = attempts + 1, last_error = $3
		 WHERE id = $1`,
		id, model.NotificationStatusFailed, lastError,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification as failed: %w", err)
	}
	return nil
}

// DeleteSentBefore は指定日時より前に配送された通知を削除し、削除件数を返す。
func (r *PostgresNotificationRepo) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications
		 WHERE status = $1 AND sent_at < $2`,
		model.NotificationStatusSent, before,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted notification count: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
