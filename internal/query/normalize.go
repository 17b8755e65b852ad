// Package query 把用户输入的自由文本规范化为 (title, year) 查询。
package query

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

// 两条规则按顺序尝试：
// (a) 末尾的 4 位 19xx/20xx（必须是最后一段数字，且前面不能紧贴数字）
// (b) 末尾的 2 位数字：n<30 => 2000+n，否则 1900+n（'82 这类撇号年份写法）
//
// 年份之后只允许跟非字母数字字符（例如 ")"、"]"、空白）。
var (
	fourDigitYearRE = regexp.MustCompile(`^(.*[^0-9])?((?:19|20)[0-9]{2})[^\p{L}\p{N}]*$`)
	twoDigitYearRE  = regexp.MustCompile(`^(.*[^0-9])?([0-9]{2})[^\p{L}\p{N}]*$`)

	slugLiteralRE = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*-(?:19|20)[0-9]{2}$`)
)

// 剥离年份后，标题尾部需要一并去掉的分隔符。
const titleTrailSep = "-_.,:;([{'’\"/|"

// Normalize 从 raw 中提取 (title, year)。
//
// 约束：输入是任意用户文本；该函数不会失败。
// 无法可靠提取年份时返回 {title: raw 去首尾空白, year: 0}。
func Normalize(raw string) domain.SearchQuery {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.SearchQuery{}
	}

	if title, year, ok := splitYear(trimmed, fourDigitYearRE, 4); ok {
		return domain.SearchQuery{Title: title, Year: year}
	}
	if title, year, ok := splitYear(trimmed, twoDigitYearRE, 2); ok {
		return domain.SearchQuery{Title: title, Year: year}
	}
	return domain.SearchQuery{Title: trimmed}
}

func splitYear(s string, re *regexp.Regexp, digits int) (string, int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	year := n
	if digits == 2 {
		year = pivotYear(n)
	}

	title := strings.TrimRightFunc(m[1], func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(titleTrailSep, r)
	})
	title = strings.TrimSpace(title)
	if title == "" {
		// 例如 "1917"：整串就是标题，不当作年份。
		return "", 0, false
	}
	return title, year, true
}

func pivotYear(n int) int {
	if n < 30 {
		return 2000 + n
	}
	return 1900 + n
}

// IsSlugLiteral 判断 term 是否已经是站点 slug 形态（例如 some-movie-2020）。
// 命中时调用方可以跳过远端搜索，直接把它当作已解析的候选。
func IsSlugLiteral(term string) bool {
	term = strings.TrimSpace(term)
	return slugLiteralRE.MatchString(term) && slug.Valid(term)
}

// LiteralCandidate 把 slug 字面量直接转换为候选（标题由 slug 还原）。
func LiteralCandidate(term string) (domain.Candidate, bool) {
	term = strings.TrimSpace(term)
	if !IsSlugLiteral(term) {
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		Slug:  term,
		Title: slug.Humanize(term),
		Year:  slug.YearOf(term),
	}, true
}
