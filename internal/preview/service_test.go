package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/readerdigest/internal/model"
)

// --- モック定義 ---

type mockGuard struct {
	validateFn func(rawURL string) error
}

func (m *mockGuard) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func (m *mockGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

var _ URLGuard = (*mockGuard)(nil)

const articleHTML = `<!DOCTYPE html>
<html><head>
<title>Understanding Go Channels - Gopher Weekly</title>
<meta property="og:title" content="  Understanding Go Channels ">
<meta name="description" content="A deep dive into channels.">
<meta property="og:image" content="/images/cover.png">
<link rel="shortcut icon" href="/static/favicon.png">
<link rel="alternate" type="application/rss+xml" href="https://feeds.other.example.com/rss">
<link rel="alternate" type="application/atom+xml" href="/atom.xml">
</head><body><h1>Heading</h1><p>First paragraph.</p></body></html>`

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Gopher Weekly</title>
<link>https://www.gopher.example.com/</link>
<description>&lt;p&gt;Weekly &lt;b&gt;Go&lt;/b&gt; news&lt;/p&gt;</description>
<item><title>Issue 1</title><link>/issues/1</link><pubDate>Mon, 04 Mar 2024 10:00:00 GMT</pubDate></item>
<item><title>Issue 2</title><link>https://gopher.example.com/issues/2</link></item>
</channel></rss>`

func newTestServer(t *testing.T, contentType, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent should be set")
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPreview_HTML(t *testing.T) {
	srv := newTestServer(t, "text/html; charset=utf-8", articleHTML)
	svc := NewService(nil, Config{}, nil, nil)

	p, err := svc.Preview(context.Background(), srv.URL+"/posts/channels")
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if p.Title != "Understanding Go Channels" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Description != "A deep dive into channels." {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Image != srv.URL+"/images/cover.png" {
		t.Errorf("Image = %q", p.Image)
	}
	if p.SiteName != "Gopher Weekly" {
		t.Errorf("SiteName = %q", p.SiteName)
	}
	if p.Favicon != srv.URL+"/static/favicon.png" {
		t.Errorf("Favicon = %q", p.Favicon)
	}
	// 同一ホストのAtomが優先される
	if p.FeedURL != srv.URL+"/atom.xml" {
		t.Errorf("FeedURL = %q", p.FeedURL)
	}
	if p.FeedEntries != nil {
		t.Error("HTML preview should not have feed entries")
	}
}

func TestPreview_HTMLFallbacks(t *testing.T) {
	page := `<html><head><title>Plain Page</title></head><body>
<h1>Ignored</h1><p>  The   first
paragraph.</p><img src="/img/logo.png"></body></html>`
	srv := newTestServer(t, "text/html", page)
	svc := NewService(nil, Config{}, nil, nil)

	p, err := svc.Preview(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if p.Title != "Plain Page" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Description != "The first paragraph." {
		t.Errorf("Description = %q", p.Description)
	}
	if p.Image != "" {
		t.Errorf("logo image should be skipped, got %q", p.Image)
	}
	if p.SiteName != "" {
		t.Errorf("SiteName = %q, want empty", p.SiteName)
	}
	if p.Favicon != srv.URL+"/favicon.ico" {
		t.Errorf("Favicon = %q", p.Favicon)
	}
}

func TestPreview_ShiftJIS(t *testing.T) {
	// "日本語" をShift_JISで表したバイト列
	body := "<html><head><meta charset=\"shift_jis\"><title>\x93\xfa\x96\x7b\x8c\xea</title></head><body></body></html>"
	srv := newTestServer(t, "text/html", body)
	svc := NewService(nil, Config{}, nil, nil)

	p, err := svc.Preview(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if p.Title != "日本語" {
		t.Errorf("Title = %q, want 日本語", p.Title)
	}
}

func TestPreview_Feed(t *testing.T) {
	srv := newTestServer(t, "application/rss+xml", rssFeed)
	svc := NewService(nil, Config{}, nil, nil)

	p, err := svc.Preview(context.Background(), srv.URL+"/rss")
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if p.Title != "Gopher Weekly" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Description != "Weekly Go news" {
		t.Errorf("Description = %q", p.Description)
	}
	if p.SiteName != "gopher.example.com" {
		t.Errorf("SiteName = %q", p.SiteName)
	}
	if len(p.FeedEntries) != 2 {
		t.Fatalf("entries = %d, want 2", len(p.FeedEntries))
	}
	if p.FeedEntries[0].Link != srv.URL+"/issues/1" {
		t.Errorf("entry link = %q", p.FeedEntries[0].Link)
	}
	if p.FeedEntries[0].Published != "2024-03-04" {
		t.Errorf("Published = %q", p.FeedEntries[0].Published)
	}
}

func TestPreview_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(notFound.Close)
	binary := newTestServer(t, "image/png", "\x89PNG")

	tests := []struct {
		name     string
		guard    URLGuard
		url      string
		wantCode string
	}{
		{"空URL", nil, "  ", model.ErrCodeInvalidURL},
		{"スキームなし", nil, "example.com/page", model.ErrCodeInvalidURL},
		{"SSRFブロック", &mockGuard{validateFn: func(string) error { return errors.New("blocked") }}, "http://10.0.0.1/", model.ErrCodeSSRFBlocked},
		{"404", nil, notFound.URL, model.ErrCodeFetchFailed},
		{"画像", nil, binary.URL, model.ErrCodeFetchFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.guard, Config{}, nil, nil)
			_, err := svc.Preview(context.Background(), tt.url)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestPreview_RespectsMaxSize(t *testing.T) {
	page := "<html><head><title>" + strings.Repeat("a", 200) + "</title></head></html>"
	srv := newTestServer(t, "text/html", page)
	svc := NewService(nil, Config{MaxSize: 40}, nil, nil)

	p, err := svc.Preview(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if len(p.Title) >= 200 {
		t.Errorf("body should be truncated, title length = %d", len(p.Title))
	}
}

func TestIsFeed(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        bool
	}{
		{"RSS Content-Type", "application/rss+xml; charset=utf-8", "", true},
		{"Atom Content-Type", "application/atom+xml", "", true},
		{"XMLのRSS", "text/xml", `<?xml version="1.0"?><rss version="2.0">`, true},
		{"XMLのAtom", "application/xml", `<feed xmlns="http://www.w3.org/2005/Atom">`, true},
		{"XMLのRDF", "application/xml", `<rdf:RDF xmlns:rdf="...">`, true},
		{"その他のXML", "application/xml", `<sitemap></sitemap>`, false},
		{"HTML", "text/html", `<rss>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFeed(tt.contentType, []byte(tt.body)); got != tt.want {
				t.Errorf("IsFeed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectBestFeed(t *testing.T) {
	candidates := []FeedCandidate{
		{URL: "https://other.example.com/rss", FeedType: FeedTypeRSS},
		{URL: "https://blog.example.com/rss", FeedType: FeedTypeRSS},
		{URL: "https://blog.example.com/atom", FeedType: FeedTypeAtom},
	}
	best := SelectBestFeed(candidates, "https://blog.example.com/post/1")
	if best == nil || best.URL != "https://blog.example.com/atom" {
		t.Errorf("best = %+v", best)
	}
	if SelectBestFeed(nil, "https://blog.example.com") != nil {
		t.Error("empty candidates should return nil")
	}
}
