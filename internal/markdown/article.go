package markdown

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/hitoshi/readerdigest/internal/security"
)

// ArticleRenderer は記事本文・メモのマークダウンを安全なHTMLに変換する。
type ArticleRenderer struct {
	md        goldmark.Markdown
	sanitizer security.ContentSanitizerService
}

// NewArticleRenderer は新しいArticleRendererを生成する。
func NewArticleRenderer(sanitizer security.ContentSanitizerService) *ArticleRenderer {
	return &ArticleRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		sanitizer: sanitizer,
	}
}

// Render はマークダウンをHTMLに変換し、サニタイズした結果を返す。
func (r *ArticleRenderer) Render(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("マークダウンの変換に失敗しました: %w", err)
	}
	return template.HTML(r.sanitizer.Sanitize(buf.String())), nil
}
