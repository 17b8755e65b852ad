package puzzle

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

// FetchMeta 拉取详情页并解析为 FilmMeta（meta 操作使用）。
func (c *Client) FetchMeta(ctx context.Context, s string) (domain.FilmMeta, error) {
	if !slug.Valid(s) {
		return domain.FilmMeta{}, ErrInvalidSlug
	}
	body, err := c.get(ctx, "film", c.site.FilmPathFor(s))
	if err != nil {
		return domain.FilmMeta{}, err
	}
	return ParseFilm(body, s, c.site)
}

// ParseFilm 把详情页 HTML 解析为最小可用 FilmMeta。
//
// 标题优先取页面 h1，其次 og:title；年份优先取 slug 尾部，其次页面年份字段。
// 图片地址统一解析为绝对 URL。
func ParseFilm(html []byte, s string, site SiteConfig) (domain.FilmMeta, error) {
	if len(html) == 0 {
		return domain.FilmMeta{}, errors.New("html 为空")
	}
	site = site.WithDefaults()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.FilmMeta{}, err
	}

	title := normSpace(doc.Find("h1.film-title").First().Text())
	if title == "" {
		title = metaContent(doc, "meta[property='og:title']")
	}
	if title == "" {
		title = slug.Humanize(s)
	}

	year := slug.YearOf(s)
	if year == 0 {
		year = firstYear(doc.Find(".film-info__year").First().Text())
	}

	desc := normSpace(doc.Find(".film-description").First().Text())
	if desc == "" {
		desc = metaContent(doc, "meta[property='og:description']")
	}
	if desc == "" {
		desc = metaContent(doc, "meta[name='description']")
	}

	poster := metaContent(doc, "meta[property='og:image']")
	if poster == "" {
		poster, _ = doc.Find(".film-poster img").First().Attr("src")
	}
	background, _ := doc.Find(".film-backdrop img").First().Attr("src")

	var genres []string
	doc.Find(".film-info__genres a").Each(func(_ int, a *goquery.Selection) {
		genres = append(genres, strings.TrimSpace(a.Text()))
	})

	base := site.BaseURL + "/"
	return domain.FilmMeta{
		Slug:        s,
		Title:       title,
		Year:        year,
		Poster:      resolveURL(base, poster),
		Background:  resolveURL(base, background),
		Description: desc,
		Genres:      normList(genres),
	}, nil
}

func metaContent(doc *goquery.Document, sel string) string {
	v, _ := doc.Find(sel).First().Attr("content")
	return normSpace(v)
}

func normList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
