// Package project はプロジェクト管理のドメインロジックを提供する。
package project

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

// maxNameLength はプロジェクト名の最大文字数。
const maxNameLength = 200

// Service はプロジェクト管理のサービス層。
// 作成、一覧取得、更新、アーカイブ、削除のビジネスロジックを提供する。
// 他ユーザーのプロジェクトは所有者チェックにより存在しないものとして扱う。
type Service struct {
	projectRepo repository.ProjectRepository
	sanitizer   security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(projectRepo repository.ProjectRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		projectRepo: projectRepo,
		sanitizer:   sanitizer,
	}
}

// Create は新しいプロジェクトを作成する。
// 説明文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, ownerID, name, description string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("プロジェクト名は必須です")
	}
	if len([]rune(name)) > maxNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("プロジェクト名は%d文字以内で指定してください", maxNameLength))
	}

	now := time.Now()
	p := &model.Project{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        name,
		Description: s.sanitizer.Sanitize(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}

	return p, nil
}

// List は所有者のプロジェクト一覧を返す。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Project, error) {
	projects, err := s.projectRepo.ListByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	return projects, nil
}

// Get はプロジェクトを取得する。所有者が一致しない場合はNotFoundを返す。
func (s *Service) Get(ctx context.Context, ownerID, projectID string) (*model.Project, error) {
	return s.findOwned(ctx, ownerID, projectID)
}

// Update はプロジェクトの名前・説明・アーカイブ状態を更新する。
func (s *Service) Update(ctx context.Context, ownerID, projectID, name, description string, archived bool) (*model.Project, error) {
	p, err := s.findOwned(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.NewValidationError("プロジェクト名は必須です")
	}

	p.Name = name
	p.Description = s.sanitizer.Sanitize(description)
	p.Archived = archived
	p.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("プロジェクトの更新に失敗しました: %w", err)
	}

	return p, nil
}

// Delete はプロジェクトを削除する。配下のタスクはデータベースの
// カスケード削除により同時に削除される。
func (s *Service) Delete(ctx context.Context, ownerID, projectID string) error {
	if _, err := s.findOwned(ctx, ownerID, projectID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗しました: %w", err)
	}

	return nil
}

// findOwned はプロジェクトを取得し、所有者を検証する。
// 他ユーザーのプロジェクトの存在を漏らさないため、
// 所有者不一致の場合も未検出と同じエラーを返す。
func (s *Service) findOwned(ctx context.Context, ownerID, projectID string) (*model.Project, error) {
	p, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if p == nil || p.OwnerID != ownerID {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	return p, nil
}
