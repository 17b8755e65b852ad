package puzzle

import "strings"

// 搜索结果条目中可映射到 Candidate 的字段。
const (
	FieldSlug   = "slug"
	FieldTitle  = "title"
	FieldYear   = "year"
	FieldPoster = "poster"
)

// FieldRule 是“选择器 → Candidate 字段”的一行映射。
//
// 同一字段可以有多行：按顺序尝试，第一个取到非空值的规则生效。
type FieldRule struct {
	Field    string
	Selector string // 相对于条目的选择器；为空表示条目本身
	Attr     string // 为空表示取文本
}

// Selectors 把站点标记结构的全部假设集中在一张表里。
// 站点改版时只需要改这里（以及对应的 testdata fixture）。
type Selectors struct {
	Item   string
	Fields []FieldRule
}

// DefaultSelectors 对应默认 FilmPath（/films/）。
var DefaultSelectors = DefaultSelectorsFor(DefaultFilmPath)

// DefaultSelectorsFor 返回默认条目结构下的选择器表；详情链接按 filmPath 匹配。
func DefaultSelectorsFor(filmPath string) Selectors {
	link := "a[href*='" + strings.ReplaceAll(filmPath, "'", "") + "']"
	return Selectors{
		Item: "div.search-results div.film-item",
		Fields: []FieldRule{
			{Field: FieldSlug, Selector: link, Attr: "href"},
			{Field: FieldTitle, Selector: ".film-item__title"},
			{Field: FieldTitle, Selector: link, Attr: "title"},
			{Field: FieldYear, Selector: ".film-item__year"},
			{Field: FieldYear, Selector: ".film-item__meta"},
			{Field: FieldPoster, Selector: "img", Attr: "data-src"},
			{Field: FieldPoster, Selector: "img", Attr: "src"},
		},
	}
}

func (s Selectors) isZero() bool { return s.Item == "" && len(s.Fields) == 0 }
