package preview

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FeedType はフィードの種類。
type FeedType string

const (
	// FeedTypeRSS はRSSフィード。
	FeedTypeRSS FeedType = "rss"
	// FeedTypeAtom はAtomフィード。
	FeedTypeAtom FeedType = "atom"
)

// FeedCandidate はHTMLのlinkタグから検出したフィード候補。
type FeedCandidate struct {
	URL      string
	FeedType FeedType
	Title    string
}

// FeedLinks はHTMLのrel="alternate"リンクからフィード候補を返す。
func FeedLinks(doc *goquery.Document, pageURL string) []FeedCandidate {
	var candidates []FeedCandidate
	doc.Find(`link[href]`).Each(func(_ int, s *goquery.Selection) {
		if !hasRel(s, "alternate") {
			return
		}
		var feedType FeedType
		switch strings.ToLower(strings.TrimSpace(s.AttrOr("type", ""))) {
		case "application/rss+xml":
			feedType = FeedTypeRSS
		case "application/atom+xml":
			feedType = FeedTypeAtom
		default:
			return
		}
		resolved := resolveURL(pageURL, s.AttrOr("href", ""))
		if resolved == "" {
			return
		}
		candidates = append(candidates, FeedCandidate{
			URL:      resolved,
			FeedType: feedType,
			Title:    s.AttrOr("title", ""),
		})
	})
	return candidates
}

// SelectBestFeed は候補から同一ホスト、Atom、先頭の優先順位で1つ選ぶ。
func SelectBestFeed(candidates []FeedCandidate, pageURL string) *FeedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	pageHost := hostOf(pageURL)
	bestIdx, bestScore := 0, -1
	for i, c := range candidates {
		score := 0
		if hostOf(c.URL) == pageHost {
			score += 100
		}
		if c.FeedType == FeedTypeAtom {
			score += 10
		}
		// 同スコアは先頭を優先
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return &candidates[bestIdx]
}

// extractFeedURL はページが配信しているフィードのURLを返す。
func extractFeedURL(doc *goquery.Document, pageURL string) string {
	best := SelectBestFeed(FeedLinks(doc, pageURL), pageURL)
	if best == nil {
		return ""
	}
	return best.URL
}

// extractFavicon はlinkタグのアイコン、なければ/favicon.icoのURLを返す。
func extractFavicon(doc *goquery.Document, pageURL string) string {
	var href string
	doc.Find(`link[href]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if hasRel(s, "icon") || hasRel(s, "apple-touch-icon") {
			href = s.AttrOr("href", "")
			return false
		}
		return true
	})
	if href != "" {
		if u := resolveURL(pageURL, href); u != "" {
			return u
		}
	}
	return defaultFaviconURL(pageURL)
}

// defaultFaviconURL はサイトの/favicon.icoのURLを返す。
func defaultFaviconURL(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Path = "/favicon.ico"
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

// hasRel はrel属性に指定のトークンが含まれるかを判定する。
func hasRel(s *goquery.Selection, token string) bool {
	for _, r := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
		if r == token {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
