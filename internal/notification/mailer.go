// Package notification は割り当て通知のメール・Webhook配送を提供する。
package notification

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/hitoshi/taskdeck/internal/model"
)

// Mailer は通知メールの送信機能のインターフェースを定義する。
type Mailer interface {
	// SendMail は通知メールを1件送信する。
	SendMail(ctx context.Context, n *model.Notification) error
}

// PostmarkMailer はPostmarkのトランザクショナルAPIを使用するMailer実装。
type PostmarkMailer struct {
	client      *postmark.Client
	senderEmail string
}

// NewPostmarkMailer はPostmarkMailerを生成する。
// トークンと送信元メールアドレスが未設定の場合はエラーを返す。
func NewPostmarkMailer(serverToken, accountToken, senderEmail string) (*PostmarkMailer, error) {
	if serverToken == "" {
		return nil, fmt.Errorf("postmark server token is required")
	}
	if accountToken == "" {
		return nil, fmt.Errorf("postmark account token is required")
	}
	if senderEmail == "" {
		return nil, fmt.Errorf("sender email is required")
	}

	return &PostmarkMailer{
		client:      postmark.NewClient(serverToken, accountToken),
		senderEmail: senderEmail,
	}, nil
}

// SendMail は通知メールをPostmark経由で送信する。
// PostmarkのAPIはHTTPレベルで成功してもレスポンスでエラーを返す
// ことがあるため、ErrorCodeも検査する。
func (m *PostmarkMailer) SendMail(ctx context.Context, n *model.Notification) error {
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:     m.senderEmail,
		To:       n.Email,
		Subject:  n.Subject,
		TextBody: n.Body,
		Tag:      "task-assignment",
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

// compile-time interface check
var _ Mailer = (*PostmarkMailer)(nil)
