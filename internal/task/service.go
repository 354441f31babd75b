// Package task はタスク管理と割り当てのドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
	"github.com/hitoshi/taskdeck/internal/security"
)

// maxTitleLength はタスクタイトルの最大文字数。
const maxTitleLength = 500

// Service はタスク管理のサービス層。
// タスクのCRUDに加え、作業者への割り当てと割り当て通知の登録を行う。
// プロジェクトの所有者チェックを経由するため、他ユーザーのプロジェクト
// 配下のタスクには一切アクセスできない。
type Service struct {
	taskRepo   repository.TaskRepository
	projRepo   repository.ProjectRepository
	workerRepo repository.WorkerRepository
	notifRepo  repository.NotificationRepository
	sanitizer  security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	taskRepo repository.TaskRepository,
	projRepo repository.ProjectRepository,
	workerRepo repository.WorkerRepository,
	notifRepo repository.NotificationRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		taskRepo:   taskRepo,
		projRepo:   projRepo,
		workerRepo: workerRepo,
		notifRepo:  notifRepo,
		sanitizer:  sanitizer,
	}
}

// Create はプロジェクト配下に新しいタスクを作成する。
// ステータスは未指定の場合todoとなる。説明文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, ownerID, projectID, title, description, status string, dueAt *time.Time) (*model.Task, error) {
	if _, err := s.findOwnedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.NewValidationError("タスクタイトルは必須です")
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, model.NewValidationError(fmt.Sprintf("タスクタイトルは%d文字以内で指定してください", maxTitleLength))
	}

	if status == "" {
		status = string(model.TaskStatusTodo)
	}
	if !model.ValidTaskStatus(status) {
		return nil, model.NewInvalidTaskStatusError(status)
	}

	now := time.Now()
	t := &model.Task{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Title:       title,
		Description: s.sanitizer.Sanitize(description),
		Status:      model.TaskStatus(status),
		DueAt:       dueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.taskRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	return t, nil
}

// ListByProject はプロジェクト配下のタスク一覧を返す。
func (s *Service) ListByProject(ctx context.Context, ownerID, projectID string) ([]*model.Task, error) {
	if _, err := s.findOwnedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// Get はタスクを取得する。
func (s *Service) Get(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	return s.findOwnedTask(ctx, ownerID, taskID)
}

// Update はタスクのタイトル・説明・ステータス・期限を更新する。
func (s *Service) Update(ctx context.Context, ownerID, taskID, title, description, status string, dueAt *time.Time) (*model.Task, error) {
	t, err := s.findOwnedTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, model.NewValidationError("タスクタイトルは必須です")
	}
	if !model.ValidTaskStatus(status) {
		return nil, model.NewInvalidTaskStatusError(status)
	}

	t.Title = title
	t.Description = s.sanitizer.Sanitize(description)
	t.Status = model.TaskStatus(status)
	t.DueAt = dueAt
	t.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}

	return t, nil
}

// Delete はタスクを削除する。
func (s *Service) Delete(ctx context.Context, ownerID, taskID string) error {
	if _, err := s.findOwnedTask(ctx, ownerID, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	return nil
}

// Assign はタスクを作業者に割り当て、割り当て通知を登録する。
// 無効化された作業者には割り当てられない。
// 通知はpendingステータスで登録され、バックグラウンドワーカーが配送する。
func (s *Service) Assign(ctx context.Context, ownerID, taskID, workerID string) (*model.Task, error) {
	t, err := s.findOwnedTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	worker, err := s.workerRepo.FindByID(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("作業者の取得に失敗しました: %w", err)
	}
	if worker == nil {
		return nil, model.NewWorkerNotFoundError(workerID)
	}
	if !worker.Active {
		return nil, model.NewWorkerInactiveError()
	}

	t.AssigneeID = worker.ID
	t.UpdatedAt = time.Now()

	if err := s.taskRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("タスクの割り当てに失敗しました: %w", err)
	}

	notification := buildAssignmentNotification(t, worker)
	if err := s.notifRepo.Create(ctx, notification); err != nil {
		// 通知登録の失敗は割り当て自体を巻き戻さない
		slog.Error("failed to enqueue assignment notification",
			slog.String("task_id", t.ID),
			slog.String("worker_id", worker.ID),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Info("assignment notification enqueued",
			slog.String("task_id", t.ID),
			slog.String("worker_id", worker.ID),
		)
	}

	return t, nil
}

// buildAssignmentNotification はタスク割り当て通知を組み立てる。
// 作業者にWebhookURLが設定されている場合はWebhook配送も行われる。
func buildAssignmentNotification(t *model.Task, w *model.Worker) *model.Notification {
	return &model.Notification{
		ID:         uuid.New().String(),
		TaskID:     t.ID,
		WorkerID:   w.ID,
		Email:      w.Email,
		WebhookURL: w.WebhookURL,
		Subject:    fmt.Sprintf("タスクが割り当てられました: %s", t.Title),
		Body:       fmt.Sprintf("%sさん\n\nタスク「%s」があなたに割り当てられました。\nステータス: %s\n", w.Name, t.Title, t.Status),
		Status:     model.NotificationStatusPending,
		CreatedAt:  time.Now(),
	}
}

// findOwnedProject はプロジェクトを取得し、所有者を検証する。
func (s *Service) findOwnedProject(ctx context.Context, ownerID, projectID string) (*model.Project, error) {
	p, err := s.projRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil || p.OwnerID != ownerID {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	return p, nil
}

// findOwnedTask はタスクを取得し、所属プロジェクトの所有者を検証する。
// 所有者不一致の場合もタスク未検出と同じエラーを返す。
func (s *Service) findOwnedTask(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	t, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if t == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	if _, err := s.findOwnedProject(ctx, ownerID, t.ProjectID); err != nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return t, nil
}
