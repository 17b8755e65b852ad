package domain

// Candidate 表示一条远端搜索命中，或一次 slug 猜测的结果。
//
// 不变量：
// - Slug 可以直接作为 URL path 的一段使用（消费方无需再转义）
// - Slug 只在同一次搜索响应内保证唯一
// - Year==0 表示未知
type Candidate struct {
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Year   int    `json:"year"`
	Poster string `json:"poster,omitempty"`

	// StreamURL 只有 slug 探测成功时才会填充。
	StreamURL string `json:"stream_url,omitempty"`
}

// ResolvedStream 是一次解析的最终结果。
// URL 为空表示“提取失败/无可用流”，并不代表 slug 无效。
type ResolvedStream struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

func (s ResolvedStream) HasURL() bool { return s.URL != "" }

// FilmMeta 是详情页解析得到的最小可用元数据（meta 操作使用）。
type FilmMeta struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}
