package preview

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/model"
)

// BackendPreviewer はバックエンドのURLプレビューAPI。apiclient.Clientが実装する。
type BackendPreviewer interface {
	PreviewURL(ctx context.Context, rawURL string) (*model.URLPreview, error)
}

// FallbackPreviewer はローカルでの取得に失敗したときだけバックエンドのプレビューを使う。
// URL不正とSSRF拒否はバックエンドに回さない。
type FallbackPreviewer struct {
	primary Previewer
	backend BackendPreviewer
	logger  *slog.Logger
}

// NewFallbackPreviewer はFallbackPreviewerを生成する。
func NewFallbackPreviewer(primary Previewer, backend BackendPreviewer, logger *slog.Logger) *FallbackPreviewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackPreviewer{primary: primary, backend: backend, logger: logger}
}

// Preview はローカルのプレビューを試し、FETCH_FAILEDの場合はバックエンドに問い合わせる。
// バックエンドも失敗した場合はローカルのエラーを返す。
func (p *FallbackPreviewer) Preview(ctx context.Context, rawURL string) (*model.URLPreview, error) {
	res, err := p.primary.Preview(ctx, rawURL)
	if err == nil {
		return res, nil
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeFetchFailed {
		return nil, err
	}

	res, backendErr := p.backend.PreviewURL(ctx, rawURL)
	if backendErr != nil {
		p.logger.Warn("backend URL preview failed",
			slog.String("url", rawURL),
			slog.String("error", backendErr.Error()),
		)
		return nil, err
	}

	if res.URL == "" {
		res.URL = rawURL
	}
	if res.Domain == "" {
		res.Domain = format.DomainFromURL(rawURL)
	}
	return res, nil
}

// compile-time interface check
var _ Previewer = (*FallbackPreviewer)(nil)
