package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	headingPattern     = regexp.MustCompile(`^(#{1,6})\s+(.*?)(?:\s+#+)?\s*$`)
	rulePattern        = regexp.MustCompile(`^\s{0,3}(?:-{3,}|\*{3,}|_{3,})\s*$`)
	quotePattern       = regexp.MustCompile(`^\s{0,3}>\s?(.*)$`)
	bulletPattern      = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	orderedPattern     = regexp.MustCompile(`^\s*(\d{1,9})[.)]\s+(.*)$`)
	fencePattern       = regexp.MustCompile("^\\s{0,3}(```+|~~~+)\\s*([\\w+#-]*)")
	emptyHeadingSuffix = regexp.MustCompile(`^#+$`)
)

// Parse はマークダウンをブロック要素の列に変換する。
// 空行以外の通常行は1行ごとに1つの段落になる。
// 連続する引用行・リスト行はそれぞれ1つのブロックにまとめる。
func Parse(src string) []Block {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.Split(src, "\n")

	var blocks []Block
	var current *Block

	flush := func() {
		if current != nil {
			blocks = append(blocks, *current)
			current = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := fencePattern.FindStringSubmatch(line); m != nil {
			flush()
			fence := m[1]
			var body []string
			for i++; i < len(lines); i++ {
				if strings.HasPrefix(strings.TrimSpace(lines[i]), fence[:3]) {
					break
				}
				body = append(body, lines[i])
			}
			blocks = append(blocks, Block{
				Kind:     BlockCode,
				Language: m[2],
				Text:     strings.Join(body, "\n"),
			})
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		if rulePattern.MatchString(line) {
			flush()
			blocks = append(blocks, Block{Kind: BlockRule})
			continue
		}

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			text := m[2]
			if emptyHeadingSuffix.MatchString(text) {
				text = ""
			}
			blocks = append(blocks, Block{
				Kind:    BlockHeading,
				Level:   len(m[1]),
				Inlines: ParseInline(text),
			})
			continue
		}

		if m := quotePattern.FindStringSubmatch(line); m != nil {
			if current == nil || current.Kind != BlockQuote {
				flush()
				current = &Block{Kind: BlockQuote}
			}
			current.Lines = append(current.Lines, ParseInline(m[1]))
			continue
		}

		if m := orderedPattern.FindStringSubmatch(line); m != nil {
			if current == nil || current.Kind != BlockList || !current.Ordered {
				flush()
				start, _ := strconv.Atoi(m[1])
				current = &Block{Kind: BlockList, Ordered: true, Start: start}
			}
			current.Items = append(current.Items, ParseInline(m[2]))
			continue
		}

		if m := bulletPattern.FindStringSubmatch(line); m != nil && !isEmphasisLine(line) {
			if current == nil || current.Kind != BlockList || current.Ordered {
				flush()
				current = &Block{Kind: BlockList}
			}
			current.Items = append(current.Items, ParseInline(m[1]))
			continue
		}

		flush()
		blocks = append(blocks, Block{
			Kind:    BlockParagraph,
			Inlines: ParseInline(strings.TrimSpace(line)),
		})
	}
	flush()

	return blocks
}

// isEmphasisLine は "*text*" のように行全体が強調の行かを判定する。
// "* item" の箇条書きと区別するために使う。
func isEmphasisLine(line string) bool {
	t := strings.TrimSpace(line)
	return len(t) > 2 && strings.HasPrefix(t, "*") && strings.HasSuffix(t, "*") && !strings.HasPrefix(t, "* ")
}
