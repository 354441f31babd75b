// Package notify は未配送通知のバッチ配送ジョブを提供する。
// pendingステータスの通知を定期的に取得し、メールおよびWebhookで配送する。
// 外部サービスへの過負荷を避けるため、トークンバケット方式で
// 配送レートを制限する。
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/taskdeck/internal/metrics"
	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
)

// Mailer は通知メールの送信機能。
type Mailer interface {
	SendMail(ctx context.Context, n *model.Notification) error
}

// WebhookSender はWebhook通知の送信機能。
type WebhookSender interface {
	SendWebhook(ctx context.Context, n *model.Notification) error
}

// Dispatcher は未配送通知のバッチ配送ジョブ。
// 1サイクルで最大MaxPerCycle件を処理する。配送の成否は通知ごとに
// 記録され、1件の失敗が他の通知の配送を妨げることはない。
type Dispatcher struct {
	notifRepo   repository.NotificationRepository
	mailer      Mailer
	webhook     WebhookSender
	limiter     *rate.Limiter
	logger      *slog.Logger
	collector   metrics.MetricsCollector
	MaxPerCycle int
}

// NewDispatcher は新しいDispatcherを生成する。
// ratePerSecは1秒あたりの配送件数の上限。
func NewDispatcher(
	notifRepo repository.NotificationRepository,
	mailer Mailer,
	webhook WebhookSender,
	ratePerSec float64,
	maxPerCycle int,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
) *Dispatcher {
	return &Dispatcher{
		notifRepo:   notifRepo,
		mailer:      mailer,
		webhook:     webhook,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:      logger,
		collector:   collector,
		MaxPerCycle: maxPerCycle,
	}
}

// Run は未配送通知を1サイクル分配送する。
// 配送対象がない場合は何もせず正常終了する。
func (d *Dispatcher) Run(ctx context.Context) error {
	start := time.Now()

	pending, err := d.notifRepo.ListPending(ctx, d.MaxPerCycle)
	if err != nil {
		d.logger.Error("未配送通知の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("未配送通知の取得に失敗: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var sent, failed int
	for _, n := range pending {
		if err := d.limiter.Wait(ctx); err != nil {
			// コンテキストのキャンセル。残りは次のサイクルで処理される。
			return fmt.Errorf("配送レート制限の待機が中断されました: %w", err)
		}

		if err := d.deliver(ctx, n); err != nil {
			failed++
			d.collector.RecordNotificationFailed()
			d.logger.Warn("通知の配送に失敗しました",
				slog.String("notification_id", n.ID),
				slog.String("task_id", n.TaskID),
				slog.String("error", err.Error()),
			)
			if markErr := d.notifRepo.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				d.logger.Error("配送失敗の記録に失敗しました",
					slog.String("notification_id", n.ID),
					slog.String("error", markErr.Error()),
				)
			}
			continue
		}

		sent++
		d.collector.RecordNotificationSent()
		if err := d.notifRepo.MarkSent(ctx, n.ID, time.Now()); err != nil {
			d.logger.Error("配送済みの記録に失敗しました",
				slog.String("notification_id", n.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	d.logger.Info("通知配送サイクルが完了しました",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// deliver は通知1件をメールとWebhookで配送する。
// Webhook URLが設定されている場合は両方の配送が成功して初めて成功とする。
func (d *Dispatcher) deliver(ctx context.Context, n *model.Notification) error {
	if err := d.mailer.SendMail(ctx, n); err != nil {
		return fmt.Errorf("メール配送に失敗: %w", err)
	}

	if n.WebhookURL != "" {
		if err := d.webhook.SendWebhook(ctx, n); err != nil {
			return fmt.Errorf("Webhook配送に失敗: %w", err)
		}
	}

	return nil
}
