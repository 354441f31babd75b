package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/taskdeck/internal/session"
)

// PostgresSessionBackend はPostgreSQLを使用したセッションバックエンド。
// 1セッションレコードを1行として保持し、キーバリュー集合はJSONBに
// シリアライズする。
//
// 同一セッションIDに対する直列化はデプロイ構成に依存する。単一プロセス
// またはsticky-sessionのロードバランシングを前提とする（SPEC上の
// Backend契約を参照）。
type PostgresSessionBackend struct {
	db *sql.DB
}

// NewPostgresSessionBackend はPostgresSessionBackendを生成する。
func NewPostgresSessionBackend(db *sql.DB) *PostgresSessionBackend {
	return &PostgresSessionBackend{db: db}
}

// Load は指定IDのセッションレコードを取得する。
// 存在しない場合はsession.ErrRecordNotFoundを返す。
func (b *PostgresSessionBackend) Load(ctx context.Context, id string) (*session.Record, error) {
	var (
		data           []byte
		lastActivity   sql.NullTime
		lastRegenerate sql.NullTime
	)
	rec := &session.Record{ID: id}

	err := b.db.QueryRowContext(ctx,
		`SELECT data, last_activity, last_regenerate, created_at
		 FROM sessions
		 WHERE id = $1`,
		id,
	).Scan(&data, &lastActivity, &lastRegenerate, &rec.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, session.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session record: %w", err)
	}

	if err := json.Unmarshal(data, &rec.Values); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	if rec.Values == nil {
		rec.Values = make(map[string]string)
	}
	if lastActivity.Valid {
		rec.LastActivity = lastActivity.Time
	}
	if lastRegenerate.Valid {
		rec.LastRegenerate = lastRegenerate.Time
	}

	return rec, nil
}

// Save はセッションレコードをUPSERTで保存する。
// ローテーション時は新IDのレコード全体が1文で書き込まれるため、
// 「IDは新しいがデータが欠けている」中間状態は永続化されない。
func (b *PostgresSessionBackend) Save(ctx context.Context, rec *session.Record) error {
	data, err := json.Marshal(rec.Values)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO sessions (id, data, last_activity, last_regenerate, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE
		 SET data = EXCLUDED.data,
		     last_activity = EXCLUDED.last_activity,
		     last_regenerate = EXCLUDED.last_regenerate`,
		rec.ID, data, nullableTime(rec.LastActivity), nullableTime(rec.LastRegenerate), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}
	return nil
}

// Delete は指定IDのセッションレコードを削除する。冪等。
func (b *PostgresSessionBackend) Delete(ctx context.Context, id string) error {
	_, err := b.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session record: %w", err)
	}
	return nil
}

// nullableTime はゼロ値のtime.TimeをNULLとして保存するための変換。
func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// compile-time interface check
var _ session.Backend = (*PostgresSessionBackend)(nil)
