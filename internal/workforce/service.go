// Package workforce は作業者管理のドメインロジックを提供する。
package workforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
	"github.com/hitoshi/taskdeck/internal/security"
)

// Service は作業者管理のサービス層。
// 作業者の登録、一覧取得、更新、有効・無効の切り替えを提供する。
// Webhook URLは保存前にSSRF検査を通過する必要がある。
type Service struct {
	workerRepo repository.WorkerRepository
	ssrfGuard  security.SSRFGuardService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(workerRepo repository.WorkerRepository, ssrfGuard security.SSRFGuardService) *Service {
	return &Service{
		workerRepo: workerRepo,
		ssrfGuard:  ssrfGuard,
	}
}

// Create は新しい作業者を登録する。登録直後はActiveとなる。
// Webhook URLは省略可能だが、指定する場合はSSRF検査を通過する必要がある。
func (s *Service) Create(ctx context.Context, name, email, webhookURL string) (*model.Worker, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))

	if name == "" {
		return nil, model.NewValidationError("作業者名は必須です")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if webhookURL != "" {
		if err := s.ssrfGuard.ValidateURL(webhookURL); err != nil {
			return nil, model.NewInvalidWebhookURLError(err.Error())
		}
	}

	now := time.Now()
	w := &model.Worker{
		ID:         uuid.New().String(),
		Name:       name,
		Email:      email,
		WebhookURL: webhookURL,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.workerRepo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("作業者の登録に失敗しました: %w", err)
	}

	return w, nil
}

// List は全作業者を返す。
func (s *Service) List(ctx context.Context) ([]*model.Worker, error) {
	workers, err := s.workerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("作業者一覧の取得に失敗しました: %w", err)
	}
	return workers, nil
}

// Get は作業者を取得する。
func (s *Service) Get(ctx context.Context, workerID string) (*model.Worker, error) {
	w, err := s.workerRepo.FindByID(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("作業者の取得に失敗しました: %w", err)
	}
	if w == nil {
		return nil, model.NewWorkerNotFoundError(workerID)
	}
	return w, nil
}

// Update は作業者の名前・メールアドレス・Webhook URL・有効状態を更新する。
func (s *Service) Update(ctx context.Context, workerID, name, email, webhookURL string, active bool) (*model.Worker, error) {
	w, err := s.Get(ctx, workerID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))

	if name == "" {
		return nil, model.NewValidationError("作業者名は必須です")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if webhookURL != "" {
		if err := s.ssrfGuard.ValidateURL(webhookURL); err != nil {
			return nil, model.NewInvalidWebhookURLError(err.Error())
		}
	}

	w.Name = name
	w.Email = email
	w.WebhookURL = webhookURL
	w.Active = active
	w.UpdatedAt = time.Now()

	if err := s.workerRepo.Update(ctx, w); err != nil {
		return nil, fmt.Errorf("作業者の更新に失敗しました: %w", err)
	}

	return w, nil
}
