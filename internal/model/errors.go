package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidURL       = "INVALID_URL"
	ErrCodeSSRFBlocked      = "SSRF_BLOCKED"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeBackendFailed    = "BACKEND_FAILED"
	ErrCodeUnsupportedLogto = "UNSUPPORTED_LOGTO_ACTION"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// ValidationError はフォーム入力の検証エラー。
// Messageはそのまま画面に表示する。
type ValidationError struct {
	Field   string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return e.Message
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required.",
		Category: "auth",
		Action:   "Please sign in again.",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
		Action:   "Check that you are signed in with the right account.",
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  message,
		Category: "content",
		Action:   "Check the link and try again.",
	}
}

// NewValidationAPIError は入力検証エラーを生成する。
func NewValidationAPIError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Correct the highlighted field and submit again.",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("Invalid URL: %s", reason),
		Category: "validation",
		Action:   "Enter a full URL starting with http:// or https://.",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "Access to the given URL is blocked by the security policy.",
		Category: "validation",
		Action:   "Use the URL of a public website. Local networks and private IPs are not allowed.",
	}
}

// NewFetchFailedError はURL取得失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("Failed to fetch URL: %s", reason),
		Category: "content",
		Action:   "Check the URL and try again later.",
	}
}

// NewBackendFailedError はバックエンド呼び出し失敗エラーを生成する。
func NewBackendFailedError(message string) *APIError {
	if message == "" {
		message = "The reading journal service is unavailable."
	}
	return &APIError{
		Code:     ErrCodeBackendFailed,
		Message:  message,
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}

// NewUnsupportedLogtoActionError は未対応のLogtoアクションエラーを生成する。
func NewUnsupportedLogtoActionError() *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedLogto,
		Message:  "Unsupported Logto action",
		Category: "auth",
		Action:   "Use sign-in, sign-in-callback, sign-out or user.",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "An internal error occurred.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}
