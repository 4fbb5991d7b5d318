package preview

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/model"
)

// maxDescriptionLength は本文先頭段落から作る説明文の上限。
const maxDescriptionLength = 300

// isHTML はContent-Typeまたはボディの先頭からHTMLかを判定する。
func isHTML(contentType string, body []byte) bool {
	mediaType := mediaTypeOf(contentType)
	if strings.Contains(mediaType, "html") {
		return true
	}
	if mediaType != "" && mediaType != "text/plain" && mediaType != "application/octet-stream" {
		return false
	}
	prefix := strings.ToLower(string(body[:min(len(body), 1024)]))
	return strings.Contains(prefix, "<html") || strings.Contains(prefix, "<!doctype html")
}

// extractHTML はHTMLからプレビュー用のメタデータを抽出する。
// 文字コードはContent-Typeとmetaタグから判定してUTF-8に変換する。
func extractHTML(r io.Reader, contentType, pageURL string) (*model.URLPreview, error) {
	utf8Reader, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("文字コードの変換に失敗しました: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("HTMLの解析に失敗しました: %w", err)
	}

	title := extractTitle(doc)
	return &model.URLPreview{
		URL:         pageURL,
		Title:       title,
		Description: extractDescription(doc),
		Image:       extractImage(doc, pageURL),
		SiteName:    extractSiteName(doc),
		Domain:      format.DomainFromURL(pageURL),
		Favicon:     extractFavicon(doc, pageURL),
		FeedURL:     extractFeedURL(doc, pageURL),
	}, nil
}

// extractTitle はog:title、twitter:title、title、最初のh1の順にタイトルを探す。
func extractTitle(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:title"]`); v != "" {
		return v
	}
	if v := metaContent(doc, `meta[name="twitter:title"]`); v != "" {
		return v
	}
	if v := collapseSpace(doc.Find("title").First().Text()); v != "" {
		return v
	}
	return collapseSpace(doc.Find("h1").First().Text())
}

// extractDescription はog:description、twitter:description、meta description、最初の段落の順に探す。
func extractDescription(doc *goquery.Document) string {
	for _, sel := range []string{
		`meta[property="og:description"]`,
		`meta[name="twitter:description"]`,
		`meta[name="description"]`,
	} {
		if v := metaContent(doc, sel); v != "" {
			return v
		}
	}
	return format.Truncate(collapseSpace(doc.Find("p").First().Text()), maxDescriptionLength)
}

// extractImage はog:image、twitter:image、article内の画像、アイコン以外の最初の画像の順に探す。
func extractImage(doc *goquery.Document, pageURL string) string {
	if v := metaContent(doc, `meta[property="og:image"]`); v != "" {
		return resolveURL(pageURL, v)
	}
	if v := metaContent(doc, `meta[name="twitter:image"]`); v != "" {
		return resolveURL(pageURL, v)
	}
	if src, ok := doc.Find("article img[src]").First().Attr("src"); ok && src != "" {
		return resolveURL(pageURL, src)
	}
	if src, ok := doc.Find("img[src]").First().Attr("src"); ok && src != "" {
		lower := strings.ToLower(src)
		if !strings.Contains(lower, "icon") && !strings.Contains(lower, "logo") {
			return resolveURL(pageURL, src)
		}
	}
	return ""
}

// extractSiteName はog:site_name、またはタイトルの" - "以降をサイト名とする。
func extractSiteName(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:site_name"]`); v != "" {
		return v
	}
	parts := strings.Split(doc.Find("title").First().Text(), " - ")
	if len(parts) > 1 {
		return strings.TrimSpace(parts[len(parts)-1])
	}
	return ""
}

// metaContent はセレクタに一致する最初のmetaタグのcontentを返す。
func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

// resolveURL は相対URLをベースURLを基準に絶対URLに解決する。
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return b.ResolveReference(r).String()
}

// collapseSpace は連続する空白を1つにまとめる。
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// plainText はHTML断片からタグを除いたテキストを返す。
func plainText(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return collapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(fragment)))
	if err != nil {
		return collapseSpace(fragment)
	}
	return collapseSpace(doc.Text())
}
