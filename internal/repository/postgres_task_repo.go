package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskdeck/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	t := &model.Task{}
	var assignee sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, project_id, assignee_id, title, description, status, due_at, created_at, updated_at
		 FROM tasks WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.ProjectID, &assignee, &t.Title, &t.Description, &t.Status, &t.DueAt, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}
	t.AssigneeID = assignee.String

	return t, nil
}

// ListByProjectID はプロジェクト配下のタスク一覧を返す。
func (r *PostgresTaskRepo) ListByProjectID(ctx context.Context, projectID string) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, assignee_id, title, description, status, due_at, created_at, updated_at
		 FROM tasks
		 WHERE project_id = $1
		 ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t := &model.Task{}
		var assignee sql.NullString
		if err := rows.Scan(&t.ID, &t.ProjectID, &assignee, &t.Title, &t.Description, &t.Status, &t.DueAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.AssigneeID = assignee.String
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, t *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, assignee_id, title, description, status, due_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.ProjectID, nullableString(t.AssigneeID), t.Title, t.Description, t.Status, t.DueAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update はタスクを更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, t *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET assignee_id = $2, title = $3, description = $4, status = $5, due_at = $6, updated_at = $7
		 WHERE id = $1`,
		t.ID, nullableString(t.AssigneeID), t.Title, t.Description, t.Status, t.DueAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete は指定IDのタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// nullableString は空文字列をNULLとして保存するための変換。
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
