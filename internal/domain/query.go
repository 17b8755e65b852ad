package domain

import "strconv"

// SearchQuery 是从自由文本规范化得到的 (title, year) 对。
//
// 约束：Year==0 表示“没有可信的年份”；构造后不再修改。
type SearchQuery struct {
	Title string
	Year  int
}

func (q SearchQuery) HasYear() bool { return q.Year > 0 }

// Term 返回发往远端搜索页的查询串（年份缺失时省略）。
func (q SearchQuery) Term() string {
	if !q.HasYear() {
		return q.Title
	}
	if q.Title == "" {
		return strconv.Itoa(q.Year)
	}
	return q.Title + " " + strconv.Itoa(q.Year)
}
