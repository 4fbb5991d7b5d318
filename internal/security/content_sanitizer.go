// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はマークダウンから生成した記事HTMLをサニタイズし、
// ユーザー入力由来のスクリプト注入を防ぐ。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// codeLanguageClass はフェンスコードブロックに付く言語クラス。
var codeLanguageClass = regexp.MustCompile(`^language-[\w+#-]+$`)

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフ。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はマークダウン出力向けのポリシーでContentSanitizerを生成する。
// ポリシーの内容:
//   - 見出し、段落、リスト、引用、コード、表、強調、取り消し線を許可
//   - aタグ: http/https/mailtoと相対URLを許可し、外部リンクにtarget="_blank"とrel="noopener noreferrer"を付与
//   - imgタグ: httpsのsrcとalt、titleのみ許可
//   - codeタグ: language-*クラスのみ許可
//   - script, iframe, styleおよびon*属性は除去
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del", "sup", "sub",
		"table", "thead", "tbody", "tr",
	)
	p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|right|center)$`)).OnElements("th", "td")
	p.AllowElements("th", "td")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")

	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src").Matching(regexp.MustCompile(`^https://`)).OnElements("img")
	p.AllowAttrs("alt", "title").OnElements("img")

	p.AllowAttrs("class").Matching(codeLanguageClass).OnElements("code")

	// GFMのタスクリスト
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
