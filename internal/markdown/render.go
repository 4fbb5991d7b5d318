package markdown

import (
	"html"
	"html/template"
	"net/url"
	"strconv"
	"strings"
)

// ダイジェスト表示で使うCSSクラス。
const (
	classTitle    = "digest-title"
	classSection  = "digest-section"
	classArticle  = "digest-article"
	classMeta     = "digest-meta"
	classSummary  = "digest-summary"
	classFooter   = "digest-footer"
	classTags     = "digest-tags"
	classTag      = "tag"
	classQuote    = "digest-quote"
	classRule     = "digest-rule"
	classText     = "digest-text"
)

// RenderDigestMarkdown はダイジェスト本文のマークダウンをHTMLに変換する。
func RenderDigestMarkdown(src string) template.HTML {
	return RenderDigest(Parse(src))
}

// RenderDigest はブロック列をHTMLに変換する。
// テキストはすべてエスケープされ、リンクはhttp/https/mailtoと相対URLのみ出力する。
func RenderDigest(blocks []Block) template.HTML {
	var b strings.Builder
	for _, blk := range blocks {
		renderBlock(&b, blk)
	}
	return template.HTML(b.String())
}

func renderBlock(b *strings.Builder, blk Block) {
	switch blk.Kind {
	case BlockHeading:
		level := blk.Level
		if level < 1 || level > 6 {
			level = 3
		}
		tag := "h" + strconv.Itoa(level)
		b.WriteString("<" + tag)
		if cls := headingClass(level); cls != "" {
			b.WriteString(` class="` + cls + `"`)
		}
		b.WriteString(">")
		renderInlines(b, blk.Inlines, false)
		b.WriteString("</" + tag + ">\n")

	case BlockParagraph:
		cls := paragraphClass(blk.Inlines)
		b.WriteString(`<p class="` + cls + `">`)
		renderInlines(b, blk.Inlines, cls == classTags)
		b.WriteString("</p>\n")

	case BlockQuote:
		b.WriteString(`<blockquote class="` + classQuote + `">`)
		for i, line := range blk.Lines {
			if i > 0 {
				b.WriteString("<br>")
			}
			renderInlines(b, line, false)
		}
		b.WriteString("</blockquote>\n")

	case BlockRule:
		b.WriteString(`<hr class="` + classRule + `">` + "\n")

	case BlockCode:
		b.WriteString("<pre><code")
		if blk.Language != "" {
			b.WriteString(` class="language-` + html.EscapeString(blk.Language) + `"`)
		}
		b.WriteString(">")
		b.WriteString(html.EscapeString(blk.Text))
		b.WriteString("</code></pre>\n")

	case BlockList:
		tag := "ul"
		if blk.Ordered {
			tag = "ol"
		}
		b.WriteString("<" + tag)
		if blk.Ordered && blk.Start > 1 {
			b.WriteString(` start="` + strconv.Itoa(blk.Start) + `"`)
		}
		b.WriteString(">")
		for _, item := range blk.Items {
			b.WriteString("<li>")
			renderInlines(b, item, false)
			b.WriteString("</li>")
		}
		b.WriteString("</" + tag + ">\n")
	}
}

func headingClass(level int) string {
	switch level {
	case 1:
		return classTitle
	case 2:
		return classSection
	case 3:
		return classArticle
	default:
		return ""
	}
}

// paragraphClass は段落の内容から表示スタイルを決める。
//   - 強調（**）で始まる行: 「Read on:」などのメタ情報
//   - "_" の斜体のみ: AI要約
//   - "*" の斜体のみ: フッター
//   - インラインコードを含む: タグ一覧
func paragraphClass(inlines []Inline) string {
	content := nonBlank(inlines)
	if len(content) == 0 {
		return classText
	}

	for _, in := range content {
		if in.Kind == InlineCode {
			return classTags
		}
	}

	if len(content) == 1 && content[0].Kind == InlineEmphasis {
		if content[0].Marker == "_" {
			return classSummary
		}
		return classFooter
	}
	if content[0].Kind == InlineStrong {
		return classMeta
	}
	return classText
}

func nonBlank(inlines []Inline) []Inline {
	out := make([]Inline, 0, len(inlines))
	for _, in := range inlines {
		if in.Kind == InlineText && strings.TrimSpace(in.Text) == "" {
			continue
		}
		out = append(out, in)
	}
	return out
}

func renderInlines(b *strings.Builder, inlines []Inline, codeAsTag bool) {
	for _, in := range inlines {
		switch in.Kind {
		case InlineText:
			b.WriteString(html.EscapeString(in.Text))
		case InlineStrong:
			b.WriteString("<strong>")
			renderInlines(b, in.Children, codeAsTag)
			b.WriteString("</strong>")
		case InlineEmphasis:
			b.WriteString("<em>")
			renderInlines(b, in.Children, codeAsTag)
			b.WriteString("</em>")
		case InlineCode:
			if codeAsTag {
				b.WriteString(`<span class="` + classTag + `">` + html.EscapeString(in.Text) + "</span>")
			} else {
				b.WriteString("<code>" + html.EscapeString(in.Text) + "</code>")
			}
		case InlineLink:
			if !isSafeLink(in.URL) {
				renderInlines(b, in.Children, codeAsTag)
				continue
			}
			b.WriteString(`<a href="` + html.EscapeString(in.URL) + `"`)
			if isExternalLink(in.URL) {
				b.WriteString(` target="_blank" rel="noopener noreferrer"`)
			}
			b.WriteString(">")
			renderInlines(b, in.Children, codeAsTag)
			b.WriteString("</a>")
		}
	}
}

func isSafeLink(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return true
	case "":
		// ブラウザは\を/として解釈するため、/\や\\もプロトコル相対URLになる
		return !strings.HasPrefix(strings.ReplaceAll(raw, `\`, "/"), "//")
	default:
		return false
	}
}

func isExternalLink(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
