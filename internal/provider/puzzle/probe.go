package puzzle

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

// Probe 不经过搜索，直接按 (title, year) 猜 slug 并尝试提取流地址。
//
// 站点的 slug 是 title+year 的确定性函数，因此搜索索引缺失/对查询敏感时，
// 直接猜测可以找回搜索找不到的片子。这是尽力而为的启发式：任何失败（404/无清单）都返回 false。
func (c *Client) Probe(ctx context.Context, title string, year int) (domain.Candidate, bool) {
	s := slug.Guess(title, year)
	if s == "" {
		return domain.Candidate{}, false
	}
	u, err := c.ExtractStream(ctx, s)
	if err != nil || u == "" {
		zerolog.Ctx(ctx).Debug().Err(err).Str("slug", s).Msg("slug 探测未命中")
		return domain.Candidate{}, false
	}
	return domain.Candidate{
		Slug:      s,
		Title:     title,
		Year:      year,
		StreamURL: u,
	}, true
}
