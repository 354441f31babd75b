package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/security"
)

// WebhookSender は作業者のWebhookエンドポイントへの通知配送を行う。
// SSRF防止機能付きのHTTPクライアントを使用するため、DNS再バインディングを
// 含む内部ネットワークへのアクセスは配送時にもブロックされる。
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender はWebhookSenderを生成する。
func NewWebhookSender(ssrfGuard security.SSRFGuardService, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		client: ssrfGuard.NewSafeClient(timeout),
	}
}

// webhookPayload はWebhook通知のリクエストボディ。
type webhookPayload struct {
	Event    string `json:"event"`
	TaskID   string `json:"task_id"`
	WorkerID string `json:"worker_id"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	SentAt   string `json:"sent_at"`
}

// SendWebhook は通知を作業者のWebhook URLへPOSTする。
// 2xx以外のステータスコードはエラーとして扱う。
func (s *WebhookSender) SendWebhook(ctx context.Context, n *model.Notification) error {
	payload := webhookPayload{
		Event:    "task.assigned",
		TaskID:   n.TaskID,
		WorkerID: n.WorkerID,
		Subject:  n.Subject,
		Body:     n.Body,
		SentAt:   time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "taskdeck-notifier/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
