package preview

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/model"
)

// maxFeedEntries はプレビューに含めるフィードエントリの上限。
const maxFeedEntries = 10

// feedContentTypes はフィードとして認識するContent-Type。
var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/feed+json",
}

// xmlContentTypes はボディ解析が必要なContent-Type。
var xmlContentTypes = []string{
	"text/xml",
	"application/xml",
}

// IsFeed はContent-Typeとボディの先頭からRSS/Atomフィードかを判定する。
func IsFeed(contentType string, body []byte) bool {
	mediaType := mediaTypeOf(contentType)

	for _, ct := range feedContentTypes {
		if mediaType == ct {
			return true
		}
	}

	isXML := mediaType == ""
	for _, ct := range xmlContentTypes {
		if mediaType == ct {
			isXML = true
			break
		}
	}
	if !isXML || len(body) == 0 {
		return false
	}
	return isRSSOrAtomXML(body)
}

// isRSSOrAtomXML はXMLの先頭4KBからRSS/Atomのルート要素を探す。
func isRSSOrAtomXML(body []byte) bool {
	prefix := strings.ToLower(string(body[:min(len(body), 4096)]))

	if strings.Contains(prefix, "<rss") || strings.Contains(prefix, "<rdf:rdf") {
		return true
	}
	return strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom")
}

// parseFeed はgofeedでフィードを解析し、プレビューに変換する。
func parseFeed(body []byte, feedURL string) (*model.URLPreview, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("フィードの解析に失敗しました: %w", err)
	}

	p := &model.URLPreview{
		URL:         feedURL,
		Title:       strings.TrimSpace(feed.Title),
		Description: format.Truncate(plainText(feed.Description), maxDescriptionLength),
		Domain:      format.DomainFromURL(feedURL),
		FeedEntries: []model.PreviewEntry{},
	}
	if feed.Link != "" {
		p.SiteName = format.DomainFromURL(feed.Link)
		p.Favicon = defaultFaviconURL(feed.Link)
	} else {
		p.Favicon = defaultFaviconURL(feedURL)
	}
	if feed.Image != nil {
		p.Image = resolveURL(feedURL, feed.Image.URL)
	}

	for _, item := range feed.Items {
		if len(p.FeedEntries) >= maxFeedEntries {
			break
		}
		if item == nil {
			continue
		}
		entry := model.PreviewEntry{
			Title:       strings.TrimSpace(item.Title),
			Link:        resolveURL(feedURL, item.Link),
			Description: format.Truncate(plainText(item.Description), maxDescriptionLength),
		}
		if item.PublishedParsed != nil {
			entry.Published = item.PublishedParsed.UTC().Format(format.InputDateLayout)
		} else if item.UpdatedParsed != nil {
			entry.Published = item.UpdatedParsed.UTC().Format(format.InputDateLayout)
		}
		p.FeedEntries = append(p.FeedEntries, entry)
	}
	return p, nil
}

// mediaTypeOf はContent-Typeからcharset等を除いたメディアタイプを返す。
func mediaTypeOf(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.ToLower(mediaType)
}
