// Package format は表示用のテキスト・日付・タグ整形ユーティリティを提供する。
package format

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseTags はタグ入力文字列をタグのスライスに変換する。
// JSON配列として解釈できる場合はその要素を、できない場合はカンマ区切りとして扱う。
// 空文字列やnullの場合は空スライスを返す。
func ParseTags(input string) []string {
	s := strings.TrimSpace(input)
	if s == "" || s == "null" {
		return []string{}
	}

	if strings.HasPrefix(s, "[") {
		var raw []any
		if err := json.Unmarshal([]byte(s), &raw); err == nil {
			return normalizeTags(raw)
		}
	}

	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// TagsToString はタグのスライスをJSON配列文字列に変換する。
func TagsToString(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// JoinTags はフォーム入力用にタグをカンマ区切りで連結する。
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

func normalizeTags(raw []any) []string {
	tags := make([]string, 0, len(raw))
	for _, v := range raw {
		if v == nil {
			continue
		}
		var tag string
		switch t := v.(type) {
		case string:
			tag = strings.TrimSpace(t)
		default:
			tag = strings.TrimSpace(fmt.Sprint(t))
		}
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
