package model

import "time"

// Worker はタスクを割り当て可能な作業者を表す。
// WebhookURLが設定されている場合、割り当て通知をWebhookでも配送する。
type Worker struct {
	ID         string
	Name       string
	Email      string
	WebhookURL string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
