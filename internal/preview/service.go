// Package preview はURLからタイトルや説明文、画像などのメタデータを抽出する。
// 記事作成フォームの入力補完に使う。
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/metrics"
	"github.com/hitoshi/readerdigest/internal/model"
)

const (
	defaultTimeout = 10 * time.Second
	defaultMaxSize = 5 * 1024 * 1024
	userAgent      = "ReaderDigest/1.0 (+URL preview)"
	acceptHeader   = "text/html, application/xhtml+xml, application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"
)

// URLGuard はSSRF検証のインターフェース。
// security.SSRFGuardServiceを抽象化する。
type URLGuard interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// Previewer はURLプレビュー機能のインターフェース。
type Previewer interface {
	Preview(ctx context.Context, rawURL string) (*model.URLPreview, error)
}

// Config はServiceの設定。
type Config struct {
	Timeout time.Duration
	MaxSize int64
}

// Service はURLを取得してメタデータを抽出する。
type Service struct {
	guard   URLGuard
	client  *http.Client
	maxSize int64
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewService はServiceを生成する。
// guardがnilの場合は検証なしの通常クライアントを使う（テスト用）。
func NewService(guard URLGuard, cfg Config, m metrics.MetricsCollector, logger *slog.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if m == nil {
		m = metrics.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if guard != nil {
		client = guard.NewSafeClient(cfg.Timeout)
	}

	return &Service{
		guard:   guard,
		client:  client,
		maxSize: cfg.MaxSize,
		metrics: m,
		logger:  logger,
	}
}

// Preview はURLを取得し、フィードまたはHTMLとしてメタデータを抽出する。
// 失敗時は*model.APIErrorを返す。
func (s *Service) Preview(ctx context.Context, rawURL string) (*model.URLPreview, error) {
	p, err := s.preview(ctx, rawURL)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			s.metrics.RecordPreview(strings.ToLower(apiErr.Code))
		} else {
			s.metrics.RecordPreview("error")
		}
		s.logger.Warn("URLプレビューに失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if p.FeedEntries != nil {
		s.metrics.RecordPreview("feed")
	} else {
		s.metrics.RecordPreview("html")
	}
	return p, nil
}

func (s *Service) preview(ctx context.Context, rawURL string) (*model.URLPreview, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, model.NewInvalidURLError("URL is required")
	}
	if !format.IsValidURL(rawURL) {
		return nil, model.NewInvalidURLError("only http and https URLs are supported")
	}

	// SSRF検証
	if s.guard != nil {
		if err := s.guard.ValidateURL(rawURL); err != nil {
			return nil, model.NewSSRFBlockedError()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, model.NewFetchFailedError("connection failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, model.NewFetchFailedError(fmt.Sprintf("HTTP error: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSize))
	if err != nil {
		return nil, model.NewFetchFailedError(fmt.Sprintf("レスポンスの読み取りに失敗: %v", err))
	}

	// リダイレクト後の最終URLを基準にする
	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	contentType := resp.Header.Get("Content-Type")

	if IsFeed(contentType, body) {
		p, err := parseFeed(body, finalURL)
		if err != nil {
			return nil, model.NewFetchFailedError(err.Error())
		}
		return p, nil
	}

	if !isHTML(contentType, body) {
		return nil, model.NewFetchFailedError("unsupported content type: " + contentType)
	}

	p, err := extractHTML(bytes.NewReader(body), contentType, finalURL)
	if err != nil {
		return nil, model.NewFetchFailedError(err.Error())
	}
	return p, nil
}

// compile-time interface check
var _ Previewer = (*Service)(nil)
