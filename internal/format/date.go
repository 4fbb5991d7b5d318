package format

import (
	"strings"
	"time"
)

const (
	// DisplayDateLayout は一覧・詳細で使う日付表示形式（例: Jan 02, 2006）。
	DisplayDateLayout = "Jan 02, 2006"
	// InputDateLayout はフォームとAPIクエリで使う日付形式。
	InputDateLayout = "2006-01-02"
)

// バックエンドはタイムゾーンなしのISO 8601を返すことがある。
var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	InputDateLayout,
}

// Week は月曜始まりの1週間を表す。
type Week struct {
	Start time.Time
	End   time.Time
}

// StartString は週の開始日をYYYY-MM-DD形式で返す。
func (w Week) StartString() string { return w.Start.Format(InputDateLayout) }

// EndString は週の終了日をYYYY-MM-DD形式で返す。
func (w Week) EndString() string { return w.End.Format(InputDateLayout) }

// ParseDate はISO 8601系の日付文字列を解析する。
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate は日付文字列を指定レイアウトで整形する。
// layoutが空の場合はDisplayDateLayoutを使う。解析できない場合は入力をそのまま返す。
func FormatDate(s, layout string) string {
	if layout == "" {
		layout = DisplayDateLayout
	}
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.Format(layout)
}

// FormatDateForInput は日付文字列をdate入力欄向けのYYYY-MM-DDに整形する。
// 解析できない場合は空文字列を返す。
func FormatDateForInput(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format(InputDateLayout)
}

// FormatDateRange は週の範囲を「Jan 02 - Jan 08, 2006」形式で整形する。
func FormatDateRange(start, end string) string {
	s, okS := ParseDate(start)
	e, okE := ParseDate(end)
	if !okS || !okE {
		return strings.TrimSpace(start + " - " + end)
	}
	if s.Year() != e.Year() {
		return s.Format(DisplayDateLayout) + " - " + e.Format(DisplayDateLayout)
	}
	return s.Format("Jan 02") + " - " + e.Format(DisplayDateLayout)
}

// WeekOf はtを含む月曜始まりの週を返す。
func WeekOf(t time.Time) Week {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // 月曜=0
	start := day.AddDate(0, 0, -offset)
	return Week{Start: start, End: start.AddDate(0, 0, 6)}
}

// CurrentWeek はnowを含む週を返す。
func CurrentWeek(now time.Time) Week {
	return WeekOf(now)
}

// PreviousWeek はnowの前週を返す。
func PreviousWeek(now time.Time) Week {
	return WeekOf(now.AddDate(0, 0, -7))
}
