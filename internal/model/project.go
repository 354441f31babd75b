package model

import "time"

// Project はタスクをまとめるプロジェクトを表す。
type Project struct {
	ID          string
	OwnerID     string
	Name        string
	Description string // サニタイズ済みHTML
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
