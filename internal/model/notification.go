package model

import "time"

// NotificationStatus は通知の配送状態を表す。
type NotificationStatus string

const (
	// NotificationStatusPending は未配送の通知を示す。
	NotificationStatusPending NotificationStatus = "pending"
	// NotificationStatusSent は配送済みの通知を示す。
	NotificationStatusSent NotificationStatus = "sent"
	// NotificationStatusFailed は配送に失敗した通知を示す。
	NotificationStatusFailed NotificationStatus = "failed"
)

// Notification はタスク割り当て時に作業者へ送る通知を表す。
// メール配送を基本とし、作業者にWebhookURLが設定されている場合は
// Webhook配送も行う。
type Notification struct {
	ID         string
	TaskID     string
	WorkerID   string
	Email      string
	WebhookURL string
	Subject    string
	Body       string
	Status     NotificationStatus
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	SentAt     *time.Time
}
