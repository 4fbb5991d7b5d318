// Package view はサーバー描画ページのテンプレートを提供する。
//
// テンプレートはバイナリに埋め込み、起動時に1回だけ解析する。
// 各ページはlayout.htmlとpartials.htmlを共有し、"content"ブロックを定義する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/hitoshi/readerdigest/internal/format"
	"github.com/hitoshi/readerdigest/internal/markdown"
	"github.com/hitoshi/readerdigest/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile   = "templates/layout.html"
	partialsFile = "templates/partials.html"
)

// ArticleHTMLRenderer は記事本文のマークダウンをHTMLに変換する。
type ArticleHTMLRenderer interface {
	Render(src string) (template.HTML, error)
}

// Page はすべてのページに共通するテンプレートデータ。
type Page struct {
	Title         string
	Authenticated bool
	User          *model.User
	CSRFToken     string
	Notice        string
	Error         string
	FeedURL       string // バックエンドが配信する公開記事のRSS
	Data          any
}

// Renderer はページ名からテンプレートを引いて描画する。
type Renderer struct {
	pages map[string]*template.Template
}

// New は埋め込みテンプレートを解析してRendererを生成する。
func New(articles ArticleHTMLRenderer) (*Renderer, error) {
	funcs := Funcs(articles)

	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, layoutFile, partialsFile)
	if err != nil {
		return nil, fmt.Errorf("レイアウトの解析に失敗しました: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("テンプレート一覧の取得に失敗しました: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile || file == partialsFile {
			continue
		}
		t, err := template.Must(base.Clone()).ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("テンプレート %s の解析に失敗しました: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}

	return &Renderer{pages: pages}, nil
}

// Has は指定したページが存在するかを返す。
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render はページを描画してレスポンスに書き込む。
// 描画途中の失敗で不完全なHTMLを返さないよう、バッファに書いてから送る。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page *Page) {
	t, ok := r.pages[name]
	if !ok {
		slog.Error("template not found", slog.String("template", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Funcs はテンプレート関数を返す。
func Funcs(articles ArticleHTMLRenderer) template.FuncMap {
	return template.FuncMap{
		// 日付
		"formatDate": func(s string) string { return format.FormatDate(s, "") },
		"inputDate":  format.FormatDateForInput,
		"dateRange":  format.FormatDateRange,

		// テキスト
		"truncate": format.Truncate,
		"excerpt":  markdown.Excerpt,
		"domain":   format.DomainFromURL,
		"joinTags": format.JoinTags,

		// マークダウン
		"articleHTML": func(src string) template.HTML {
			html, err := articles.Render(src)
			if err != nil {
				slog.Warn("failed to render article markdown", slog.String("error", err.Error()))
				return template.HTML(template.HTMLEscapeString(src))
			}
			return html
		},
		"digestHTML": markdown.RenderDigestMarkdown,

		// 数値
		"add": func(a, b int) int { return a + b },
		"itoa": func(v int64) string { return strconv.FormatInt(v, 10) },
	}
}

// Pager はページネーションのリンクを組み立てる。
type Pager struct {
	model.Pagination
	Path  string
	Query url.Values
}

// NewPager はフィルター条件を保ったままページを切り替えるPagerを返す。
func NewPager(p model.Pagination, path string, query url.Values) Pager {
	q := url.Values{}
	for k, vs := range query {
		if k == "page" {
			continue
		}
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	return Pager{Pagination: p, Path: path, Query: q}
}

// URL は指定ページへのリンクを返す。
func (p Pager) URL(page int) string {
	q := url.Values{}
	for k, vs := range p.Query {
		q[k] = vs
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if len(q) == 0 {
		return p.Path
	}
	return p.Path + "?" + q.Encode()
}

// Show はページ送りを表示するかを返す。
func (p Pager) Show() bool {
	return p.HasNext || p.HasPrev
}
