// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/taskdeck/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// FindByID は指定IDのプロジェクトを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Project, error)

	// ListByOwnerID は指定ユーザーが所有するプロジェクト一覧を返す。
	ListByOwnerID(ctx context.Context, ownerID string) ([]*model.Project, error)

	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.Project) error

	// Update はプロジェクトを更新する。
	Update(ctx context.Context, project *model.Project) error

	// Delete は指定IDのプロジェクトを削除する。
	// 配下のタスクはCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// ListByProjectID はプロジェクト配下のタスク一覧を返す。
	ListByProjectID(ctx context.Context, projectID string) ([]*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update はタスクを更新する。
	Update(ctx context.Context, task *model.Task) error

	// Delete は指定IDのタスクを削除する。
	Delete(ctx context.Context, id string) error
}

// WorkerRepository は作業者データの永続化インターフェース。
type WorkerRepository interface {
	// FindByID は指定IDの作業者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Worker, error)

	// List は全作業者の一覧を返す。
	List(ctx context.Context) ([]*model.Worker, error)

	// Create は作業者を作成する。
	Create(ctx context.Context, worker *model.Worker) error

	// Update は作業者を更新する。
	Update(ctx context.Context, worker *model.Worker) error
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// ListPending は未配送の通知を作成日時の昇順で最大limit件取得する。
	ListPending(ctx context.Context, limit int) ([]*model.Notification, error)

	// MarkSent は通知を配送済みにする。
	MarkSent(ctx context.Context, id string, sentAt time.Time) error

	// MarkFailed は通知の失敗を記録し、試行回数を加算する。
	MarkFailed(ctx context.Context, id string, reason string) error

	// DeleteSentBefore は指定日時より前に配送済みとなった通知を削除し、
	// 削除件数を返す。
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
