package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// NewRecoveryMiddleware はハンドラのpanicを回復して500を返すミドルウェアを生成する。
// /api/配下へはJSONの統一エラーを、ページへはプレーンテキストを返す。
// http.ErrAbortHandlerは接続を切るために再送出する。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)
				if strings.HasPrefix(r.URL.Path, "/api/") {
					WriteInternalServerError(w)
					return
				}
				w.Header().Set("Cache-Control", "no-store")
				http.Error(w, "Something went wrong. Please try again later.", http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
