// Package apiclient は読書記録バックエンドREST APIのクライアントを提供する。
// リクエストごとのセッションからベアラートークンを付与して呼び出す。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/readerdigest/internal/metrics"
)

const (
	// apiPrefix はバックエンドAPIのパスプレフィックス。
	apiPrefix = "/api/v1"
	// maxResponseSize はレスポンスボディの最大サイズ。
	maxResponseSize = 10 * 1024 * 1024
	// defaultMessage はエラーメッセージを取得できなかった場合の既定文。
	defaultMessage = "The request to the reading journal service failed."
	// exchangeSecretHeader はLogtoトークン交換で共有シークレットを渡すヘッダー。
	exchangeSecretHeader = "X-Logto-Exchange-Secret"
)

// TokenSource はリクエストのコンテキストからアクセストークンを取り出す。
// トークンがない場合は空文字列を返す。
type TokenSource func(ctx context.Context) string

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      TokenSource
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// apiBaseURLはバックエンドのオリジン（例: http://localhost:5001）。
func NewClient(httpClient *http.Client, apiBaseURL string, token TokenSource, m metrics.MetricsCollector, logger *slog.Logger) *Client {
	if token == nil {
		token = func(context.Context) string { return "" }
	}
	if m == nil {
		m = metrics.Noop{}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(apiBaseURL, "/") + apiPrefix,
		token:      token,
		metrics:    m,
		logger:     logger,
	}
}

// request はバックエンド呼び出し1回分のパラメータ。
type request struct {
	endpoint string // メトリクス用のエンドポイント名
	method   string
	path     string
	query    url.Values
	body     any
	header   http.Header
	noAuth   bool
}

// do はリクエストを送信し、2xxならoutにJSONをデコードする。
// 2xx以外はレスポンスボディからメッセージを取り出して*Errorを返す。
func (c *Client) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if !r.noAuth {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordBackendCall(r.endpoint, 0, time.Since(start))
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("endpoint", r.endpoint),
			slog.String("error", err.Error()),
		)
		return &Error{Kind: KindNetwork, Message: "Unable to reach the reading journal service.", Err: err}
	}
	defer resp.Body.Close()
	c.metrics.RecordBackendCall(r.endpoint, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Message: "Failed to read the response.", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			Kind:       kindForStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
		level := slog.LevelWarn
		if apiErr.Kind == KindUnknown {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "バックエンドAPIがエラーステータスを返しました",
			slog.String("endpoint", r.endpoint),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindUnknown, StatusCode: resp.StatusCode, Message: "Unexpected response from the reading journal service.", Err: err}
	}
	return nil
}

// errorMessage はエラーレスポンスのボディからメッセージを取り出す。
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return defaultMessage
	}
	if body.Error != "" {
		return body.Error
	}
	if body.Message != "" {
		return body.Message
	}
	return defaultMessage
}
