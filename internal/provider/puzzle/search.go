package puzzle

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

var yearTextRE = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)

// Search 以 {title, year} 查询站点搜索页，并返回候选列表（保持站点原始排序）。
//
// 约束：
// - 一次调用对应一次 HTTP 往返，不重试
// - q 带年份时严格过滤：年份不一致的候选直接丢弃
// - HTTP 失败返回 *provider.RemoteUnavailableError；解析不到结果返回空切片
func (c *Client) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Candidate, error) {
	term := strings.TrimSpace(q.Term())
	if strings.TrimSpace(q.Title) == "" {
		return nil, nil
	}

	body, err := c.get(ctx, "search", c.site.SearchPathFor(term))
	if err != nil {
		return nil, err
	}

	cands, err := ParseSearch(body, c.selectors, c.site)
	if err != nil {
		return nil, err
	}
	out := FilterByYear(cands, q.Year)
	zerolog.Ctx(ctx).Debug().
		Str("term", term).
		Int("parsed", len(cands)).
		Int("kept", len(out)).
		Msg("搜索完成")
	return out, nil
}

// ParseSearch 把搜索页 HTML 解析为候选列表。纯函数：相同输入 => 相同输出。
//
// 年份优先取 slug 尾部的 -YYYY（站点把年份编码在 slug 里，最可信），
// 其次才取条目里渲染的年份字段。没有可用 slug 的条目直接跳过。
func ParseSearch(html []byte, sel Selectors, site SiteConfig) ([]domain.Candidate, error) {
	site = site.WithDefaults()
	if sel.isZero() {
		sel = DefaultSelectorsFor(site.FilmPath)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, 16)
	out := make([]domain.Candidate, 0, 16)
	doc.Find(sel.Item).Each(func(_ int, item *goquery.Selection) {
		vals := mapFields(item, sel.Fields)

		s := slugFromHref(vals[FieldSlug], site.FilmPath)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}

		year := slug.YearOf(s)
		if year == 0 {
			year = firstYear(vals[FieldYear])
		}
		title := normSpace(vals[FieldTitle])
		if title == "" {
			title = slug.Humanize(s)
		}

		out = append(out, domain.Candidate{
			Slug:   s,
			Title:  title,
			Year:   year,
			Poster: resolveURL(site.BaseURL+"/", vals[FieldPoster]),
		})
	})
	return out, nil
}

// FilterByYear 实现严格年份过滤：year<=0 时原样返回。
func FilterByYear(cands []domain.Candidate, year int) []domain.Candidate {
	if year <= 0 {
		return cands
	}
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Year == year {
			out = append(out, c)
		}
	}
	return out
}

func mapFields(item *goquery.Selection, rules []FieldRule) map[string]string {
	vals := make(map[string]string, 4)
	for _, r := range rules {
		if vals[r.Field] != "" {
			continue
		}
		s := item
		if r.Selector != "" {
			s = item.Find(r.Selector).First()
		}
		if s.Length() == 0 {
			continue
		}
		var v string
		if r.Attr == "" {
			v = s.Text()
		} else {
			v, _ = s.Attr(r.Attr)
		}
		if v = strings.TrimSpace(v); v != "" {
			vals[r.Field] = v
		}
	}
	return vals
}

// slugFromHref 取 filmPath 之后的第一段 path 作为 slug（兼容绝对 URL、尾部斜杠、query）。
func slugFromHref(href, filmPath string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	i := strings.Index(u.Path, filmPath)
	if i < 0 {
		return ""
	}
	rest := u.Path[i+len(filmPath):]
	seg, _, _ := strings.Cut(rest, "/")
	seg, err = url.PathUnescape(seg)
	if err != nil || !slug.Valid(seg) {
		return ""
	}
	return seg
}

func firstYear(s string) int {
	m := yearTextRE.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
