package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, project, task, worker, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCSRFRejected       = "CSRF_REJECTED"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeProjectNotFound    = "PROJECT_NOT_FOUND"
	ErrCodeTaskNotFound       = "TASK_NOT_FOUND"
	ErrCodeWorkerNotFound     = "WORKER_NOT_FOUND"
	ErrCodeWorkerInactive     = "WORKER_INACTIVE"
	ErrCodeInvalidTaskStatus  = "INVALID_TASK_STATUS"
	ErrCodeInvalidWebhookURL  = "INVALID_WEBHOOK_URL"
)

// NewCSRFRejectedError はCSRFトークン検証失敗エラーを生成する。
// 内部詳細（トークン不在か不一致か）は漏らさない。
func NewCSRFRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFRejected,
		Message:  "リクエストが拒否されました。",
		Category: "auth",
		Action:   "ページを再読み込みしてから、もう一度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレスの存在有無は区別せず同一メッセージを返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewProjectNotFoundError はプロジェクト未検出エラーを生成する。
func NewProjectNotFoundError(projectID string) *APIError {
	return &APIError{
		Code:     ErrCodeProjectNotFound,
		Message:  fmt.Sprintf("指定されたプロジェクトが見つかりません: %s", projectID),
		Category: "project",
		Action:   "プロジェクトIDを確認してください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewWorkerNotFoundError は作業者未検出エラーを生成する。
func NewWorkerNotFoundError(workerID string) *APIError {
	return &APIError{
		Code:     ErrCodeWorkerNotFound,
		Message:  fmt.Sprintf("指定された作業者が見つかりません: %s", workerID),
		Category: "worker",
		Action:   "作業者IDを確認してください。",
	}
}

// NewWorkerInactiveError は無効化済み作業者への割り当てエラーを生成する。
func NewWorkerInactiveError() *APIError {
	return &APIError{
		Code:     ErrCodeWorkerInactive,
		Message:  "この作業者は無効化されているため、タスクを割り当てられません。",
		Category: "worker",
		Action:   "作業者を有効化するか、別の作業者を指定してください。",
	}
}

// NewInvalidTaskStatusError は無効なタスクステータスエラーを生成する。
func NewInvalidTaskStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTaskStatus,
		Message:  fmt.Sprintf("無効なタスクステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには todo、in_progress、done のいずれかを指定してください。",
	}
}

// NewInvalidWebhookURLError は無効なWebhook URLエラーを生成する。
// SSRF検査でブロックされた場合も同じエラーを返す。
func NewInvalidWebhookURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWebhookURL,
		Message:  fmt.Sprintf("無効なWebhook URLです: %s", reason),
		Category: "validation",
		Action:   "公開されているhttps://のエンドポイントURLを指定してください。",
	}
}
