package format

import (
	"reflect"
	"testing"
	"time"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"カンマ区切り", "tech, web, dev", []string{"tech", "web", "dev"}},
		{"JSON配列", `["a","b"]`, []string{"a", "b"}},
		{"空文字列", "", []string{}},
		{"null", "null", []string{}},
		{"空白のみ", "   ", []string{}},
		{"空要素を除去", "go,, ,rust,", []string{"go", "rust"}},
		{"単一タグ", "reading", []string{"reading"}},
		{"壊れたJSONはカンマ区切り扱い", `["a", "b"`, []string{`["a"`, `"b"`}},
		{"JSON配列の空要素を除去", `["x", "", " y "]`, []string{"x", "y"}},
		{"JSON配列の数値", `[1, "two"]`, []string{"1", "two"}},
		{"空のJSON配列", `[]`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTags(tt.input)
			if got == nil {
				t.Fatal("ParseTags should never return nil")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTags(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTagsToString(t *testing.T) {
	if got := TagsToString([]string{"a", "b"}); got != `["a","b"]` {
		t.Errorf("TagsToString = %q, want %q", got, `["a","b"]`)
	}
	if got := TagsToString(nil); got != "[]" {
		t.Errorf("TagsToString(nil) = %q, want %q", got, "[]")
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		input  string
		layout string
		want   string
	}{
		{"2024-03-05T10:20:30.123456", "", "Mar 05, 2024"},
		{"2024-03-05T10:20:30Z", "", "Mar 05, 2024"},
		{"2024-03-05", "", "Mar 05, 2024"},
		{"2024-03-05", "2006/01/02", "2024/03/05"},
		{"not a date", "", "not a date"},
	}

	for _, tt := range tests {
		if got := FormatDate(tt.input, tt.layout); got != tt.want {
			t.Errorf("FormatDate(%q, %q) = %q, want %q", tt.input, tt.layout, got, tt.want)
		}
	}
}

func TestFormatDateForInput(t *testing.T) {
	if got := FormatDateForInput("2024-03-05T10:20:30"); got != "2024-03-05" {
		t.Errorf("FormatDateForInput = %q, want %q", got, "2024-03-05")
	}
	if got := FormatDateForInput("garbage"); got != "" {
		t.Errorf("FormatDateForInput(garbage) = %q, want empty", got)
	}
}

func TestFormatDateRange(t *testing.T) {
	if got := FormatDateRange("2024-03-04", "2024-03-10"); got != "Mar 04 - Mar 10, 2024" {
		t.Errorf("FormatDateRange = %q", got)
	}
	if got := FormatDateRange("2024-12-30", "2025-01-05"); got != "Dec 30, 2024 - Jan 05, 2025" {
		t.Errorf("FormatDateRange across years = %q", got)
	}
}

func TestCurrentWeek_StartsOnMonday(t *testing.T) {
	// 2024-03-07 は木曜日
	now := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)

	w := CurrentWeek(now)
	if w.StartString() != "2024-03-04" {
		t.Errorf("Start = %s, want 2024-03-04", w.StartString())
	}
	if w.EndString() != "2024-03-10" {
		t.Errorf("End = %s, want 2024-03-10", w.EndString())
	}
}

func TestCurrentWeek_OnSunday(t *testing.T) {
	now := time.Date(2024, 3, 10, 23, 0, 0, 0, time.UTC)

	w := CurrentWeek(now)
	if w.StartString() != "2024-03-04" {
		t.Errorf("Start = %s, want 2024-03-04", w.StartString())
	}
}

func TestPreviousWeek(t *testing.T) {
	now := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	w := PreviousWeek(now)
	if w.StartString() != "2024-02-26" || w.EndString() != "2024-03-03" {
		t.Errorf("PreviousWeek = %s..%s, want 2024-02-26..2024-03-03", w.StartString(), w.EndString())
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	if got := Truncate("hello world", 6); got != "hello..." {
		t.Errorf("Truncate = %q, want %q", got, "hello...")
	}
	if got := Truncate("日本語のテキスト", 3); got != "日本語..." {
		t.Errorf("Truncate multibyte = %q, want %q", got, "日本語...")
	}
}

func TestIsValidURL(t *testing.T) {
	valid := []string{"https://example.com", "http://example.com/a?b=c"}
	invalid := []string{"", "example.com", "ftp://example.com", "javascript:alert(1)", "https://"}

	for _, u := range valid {
		if !IsValidURL(u) {
			t.Errorf("IsValidURL(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if IsValidURL(u) {
			t.Errorf("IsValidURL(%q) = true, want false", u)
		}
	}
}

func TestDomainFromURL(t *testing.T) {
	if got := DomainFromURL("https://www.example.com/path"); got != "example.com" {
		t.Errorf("DomainFromURL = %q, want %q", got, "example.com")
	}
	if got := DomainFromURL("not a url"); got != "not a url" {
		t.Errorf("DomainFromURL(invalid) = %q", got)
	}
}
