// Package markdown はダイジェスト・記事本文のマークダウン処理を提供する。
//
// ダイジェスト本文はParseで型付きブロック列に変換し、RenderDigestでHTMLに変換する。
// 記事本文はgoldmarkでHTMLに変換した後、サニタイズする。
package markdown

// BlockKind はブロック要素の種類。
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockQuote
	BlockRule
	BlockCode
	BlockList
)

func (k BlockKind) String() string {
	switch k {
	case BlockParagraph:
		return "paragraph"
	case BlockHeading:
		return "heading"
	case BlockQuote:
		return "quote"
	case BlockRule:
		return "rule"
	case BlockCode:
		return "code"
	case BlockList:
		return "list"
	default:
		return "unknown"
	}
}

// Block はマークダウンのブロック要素。
// 種類ごとに使うフィールドが異なる。
//   - Heading: Level, Inlines
//   - Paragraph: Inlines
//   - Quote: Lines（1行ごとのインライン列。空行は長さ0）
//   - Code: Language, Text
//   - List: Ordered, Start, Items
//   - Rule: なし
type Block struct {
	Kind     BlockKind
	Level    int
	Inlines  []Inline
	Lines    [][]Inline
	Language string
	Text     string
	Ordered  bool
	Start    int
	Items    [][]Inline
}

// InlineKind はインライン要素の種類。
type InlineKind int

const (
	InlineText InlineKind = iota
	InlineStrong
	InlineEmphasis
	InlineCode
	InlineLink
)

// Inline はインライン要素。
// Strong, Emphasis, LinkはChildrenを持つ。Emphasisの区切り文字はMarkerに入る（"*" または "_"）。
type Inline struct {
	Kind     InlineKind
	Text     string
	URL      string
	Marker   string
	Children []Inline
}

// PlainText はインライン列から装飾を除いたテキストを返す。
func PlainText(inlines []Inline) string {
	var b []byte
	for _, in := range inlines {
		switch in.Kind {
		case InlineText, InlineCode:
			b = append(b, in.Text...)
		default:
			b = append(b, PlainText(in.Children)...)
		}
	}
	return string(b)
}
