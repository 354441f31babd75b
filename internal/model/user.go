// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal はセッションに格納される認証済みユーザーのスナップショット。
// ログインフローがJSONにシリアライズしてセッションに書き込み、
// リクエストごとにIdentityCacheが復元する。
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}
