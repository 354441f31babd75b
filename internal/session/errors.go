package session

import "errors"

var (
	// ErrRecordNotFound はバックエンドにセッションレコードが存在しない場合に返される。
	ErrRecordNotFound = errors.New("session record not found")

	// ErrBackendUnavailable はバックエンドの読み書きに失敗した場合に返される。
	// このエラーはリクエストにとって致命的であり、未認証として処理を
	// 継続してはならない。
	ErrBackendUnavailable = errors.New("session backend unavailable")

	// ErrCSRFRejected はCSRFトークン検証に失敗した場合に返される。
	// HTTP 403相当として扱う。
	ErrCSRFRejected = errors.New("csrf token rejected")
)
