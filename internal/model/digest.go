package model

// Digest は週ごとの読書ダイジェストを表す。
// Contentはマークダウン。
type Digest struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Summary     string `json:"summary"`
	WeekStart   string `json:"week_start"`
	WeekEnd     string `json:"week_end"`
	IsPublished bool   `json:"is_published"`
	IsPublic    bool   `json:"is_public"`
	UserID      int64  `json:"user_id"`
	Author      string `json:"author"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	PublishedAt string `json:"published_at,omitempty"`
}

// IsPubliclyVisible は公開ページに表示してよいダイジェストかを返す。
// 公開済みかつ公開設定の両方が必要。
func (d *Digest) IsPubliclyVisible() bool {
	return d.IsPublished && d.IsPublic
}

// DigestInput はダイジェストの作成・更新リクエストのボディ。
type DigestInput struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Summary     string `json:"summary,omitempty"`
	WeekStart   string `json:"week_start"`
	WeekEnd     string `json:"week_end"`
	IsPublished bool   `json:"is_published"`
	IsPublic    bool   `json:"is_public"`
}

// DigestList はダイジェスト一覧APIのレスポンス。
type DigestList struct {
	Digests    []Digest   `json:"digests"`
	Pagination Pagination `json:"pagination"`
}

// DigestQuery はダイジェスト一覧APIのクエリパラメータ。
type DigestQuery struct {
	Page    int
	PerPage int
	UserID  int64
	View    ViewType
}

// GeneratedDigest は週次ダイジェスト生成APIが返す下書き。
type GeneratedDigest struct {
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Summary       string    `json:"summary"`
	WeekStart     string    `json:"week_start"`
	WeekEnd       string    `json:"week_end"`
	ArticlesCount int       `json:"articles_count"`
	Articles      []Article `json:"articles"`
}

// AvailableWeek はダイジェストを生成できる週を表す。
type AvailableWeek struct {
	WeekStart    string `json:"week_start"`
	WeekEnd      string `json:"week_end"`
	WeekLabel    string `json:"week_label"`
	ArticleCount int    `json:"article_count"`
}

// AvailableWeeks は生成可能な週一覧APIのレスポンス。
type AvailableWeeks struct {
	Weeks      []AvailableWeek `json:"available_weeks"`
	TotalWeeks int             `json:"total_weeks"`
}
