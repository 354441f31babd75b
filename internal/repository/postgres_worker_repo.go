package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskdeck/internal/model"
)

// PostgresWorkerRepo はPostgreSQLを使用した作業者リポジトリ。
type PostgresWorkerRepo struct {
	db *sql.DB
}

// NewPostgresWorkerRepo はPostgresWorkerRepoを生成する。
func NewPostgresWorkerRepo(db *sql.DB) *PostgresWorkerRepo {
	return &PostgresWorkerRepo{db: db}
}

// FindByID は指定IDの作業者を取得する。見つからない場合はnilを返す。
func (r *PostgresWorkerRepo) FindByID(ctx context.Context, id string) (*model.Worker, error) {
	w := &model.Worker{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, webhook_url, active, created_at, updated_at
		 FROM workers WHERE id = $1`,
		id,
	).Scan(&w.ID, &w.Name, &w.Email, &w.WebhookURL, &w.Active, &w.CreatedAt, &w.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find worker by ID: %w", err)
	}

	return w, nil
}

// List は全作業者を返す。
func (r *PostgresWorkerRepo) List(ctx context.Context) ([]*model.Worker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, webhook_url, active, created_at, updated_at
		 FROM workers
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var workers []*model.Worker
	for rows.Next() {
		w := &model.Worker{}
		if err := rows.Scan(&w.ID, &w.Name, &w.Email, &w.WebhookURL, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workers: %w", err)
	}

	return workers, nil
}

// Create は作業者を作成する。
func (r *PostgresWorkerRepo) Create(ctx context.Context, w *model.Worker) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workers (id, name, email, webhook_url, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.Name, w.Email, w.WebhookURL, w.Active, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert worker: %w", err)
	}
	return nil
}

// Update は作業者を更新する。
func (r *PostgresWorkerRepo) Update(ctx context.Context, w *model.Worker) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE workers
		 SET name = $2, email = $3, webhook_url = $4, active = $5, updated_at = $6
		 WHERE id = $1`,
		w.ID, w.Name, w.Email, w.WebhookURL, w.Active, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update worker: %w", err)
	}
	return nil
}

// compile-time interface check
var _ WorkerRepository = (*PostgresWorkerRepo)(nil)
