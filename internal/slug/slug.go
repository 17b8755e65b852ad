// Package slug 集中维护远端站点 slug 的构造与识别规则。
//
// 站点的 slug 约定为 <title-kebab-case>-<year>。这里的规则是对站点行为的近似，
// 不保证与站点自身的生成算法完全一致（例如冠词、音译差异）。
package slug

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	nonAlnumRE = regexp.MustCompile(`[^a-z0-9]+`)
	// 只允许 URL unreserved 字符，保证可以直接拼进 path。
	validRE  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._~-]*$`)
	yearTail = regexp.MustCompile(`-((?:19|20)[0-9]{2})$`)
)

// Guess 由 (title, year) 确定性地构造 slug：
// 音译为 ASCII → 小写 → 非字母数字连续段折叠为单个 '-' → 去掉首尾 '-' → 追加 "-<year>"。
//
// title 为空或 year<=0 时返回空串（无法构造有意义的 slug）。
func Guess(title string, year int) string {
	if year <= 0 {
		return ""
	}
	base := Kebab(title)
	if base == "" {
		return ""
	}
	return base + "-" + strconv.Itoa(year)
}

// Kebab 只做标题部分的规范化（不带年份）。
func Kebab(title string) string {
	s := strings.ToLower(unidecode.Unidecode(strings.TrimSpace(title)))
	s = nonAlnumRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Valid 判断 s 能否直接作为 URL path 的一段使用。
func Valid(s string) bool { return validRE.MatchString(s) }

// YearOf 读取 slug 尾部的 -YYYY（19xx/20xx）；没有则返回 0。
func YearOf(s string) int {
	m := yearTail.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Humanize 把 slug 还原成可展示的标题（去掉年份后缀，按词首字母大写）。
// 只用于没有更好标题来源的场景（例如 catalog 的 slug 直达）。
func Humanize(s string) string {
	s = yearTail.ReplaceAllString(s, "")
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
