package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/model"
)

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeCSRFRejected:
		return http.StatusForbidden
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	case model.ErrCodeValidationFailed,
		model.ErrCodeInvalidTaskStatus,
		model.ErrCodeInvalidWebhookURL:
		return http.StatusBadRequest
	case model.ErrCodeProjectNotFound,
		model.ErrCodeTaskNotFound,
		model.ErrCodeWorkerNotFound:
		return http.StatusNotFound
	case model.ErrCodeWorkerInactive:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeInvalidRequestBody はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}
