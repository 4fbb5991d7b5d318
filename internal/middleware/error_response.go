package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/readerdigest/internal/model"
)

// ErrorResponseBody はJSONエンドポイントのエラーレスポンス。
// Errorはフロントエンドの既存スクリプトが読む互換フィールドで、Messageと同じ値を持つ。
type ErrorResponseBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// StatusForAPIError はエラーコードに対応するHTTPステータスを返す。
func StatusForAPIError(e *model.APIError) int {
	switch e.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeSSRFBlocked:
		return http.StatusForbidden
	case model.ErrCodeNotFound, model.ErrCodeUnsupportedLogto:
		return http.StatusNotFound
	case model.ErrCodeFetchFailed, model.ErrCodeBackendFailed:
		return http.StatusBadGateway
	case model.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// WriteAPIError はエラーコードから決まるステータスでエラーレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
}

// WriteErrorResponse は指定ステータスでエラーレスポンスを書き込む。
// エラー応答はキャッシュさせない。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponseBody{
		Error:    apiErr.Message,
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は500の汎用レスポンスを書き込む。詳細はログにのみ残す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, model.NewInternalError())
}
