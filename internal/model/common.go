package model

// ViewType は一覧APIの表示範囲。
type ViewType string

const (
	// ViewPublic は公開コンテンツのみ。
	ViewPublic ViewType = "public"
	// ViewOwn はログインユーザー自身のコンテンツ。
	ViewOwn ViewType = "own"
)

// Pagination はバックエンドのページネーション情報。
type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// NextPage は次ページ番号を返す。
func (p Pagination) NextPage() int { return p.Page + 1 }

// PrevPage は前ページ番号を返す。
func (p Pagination) PrevPage() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// MessageResponse はメッセージのみを返すAPIのレスポンス。
type MessageResponse struct {
	Message string `json:"message"`
}

// URLPreview はURLから抽出したメタデータ。
type URLPreview struct {
	URL         string         `json:"url"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	SiteName    string         `json:"site_name"`
	Domain      string         `json:"domain"`
	Favicon     string         `json:"favicon,omitempty"`
	FeedURL     string         `json:"feed_url,omitempty"`
	FeedEntries []PreviewEntry `json:"feed_entries,omitempty"`
}

// PreviewEntry はURLがフィードだった場合の各エントリ。
type PreviewEntry struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Published   string `json:"published,omitempty"`
	Description string `json:"description,omitempty"`
}
