package model

import "time"

// TaskStatus はタスクの進行状態を表す。
type TaskStatus string

const (
	// TaskStatusTodo は未着手のタスクを示す。
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress は作業中のタスクを示す。
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusDone は完了したタスクを示す。
	TaskStatusDone TaskStatus = "done"
)

// ValidTaskStatus はステータス文字列が定義済みの値かどうかを判定する。
func ValidTaskStatus(s string) bool {
	switch TaskStatus(s) {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	default:
		return false
	}
}

// Task はプロジェクト配下の作業単位を表す。
// AssigneeIDは未割り当ての場合に空文字列となる。
type Task struct {
	ID          string
	ProjectID   string
	AssigneeID  string
	Title       string
	Description string // サニタイズ済みHTML
	Status      TaskStatus
	DueAt       *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
