// Package addon 实现 Stremio addon 的 catalog/meta/stream 操作与 HTTP 路由。
//
// 每个入站请求用自己的 cookie 构造一个站点会话；请求之间不共享任何可变状态。
// 只有凭据缺失/无效是硬失败（400），其余一律降级为空结果。
package addon

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xybydy/go-stremio/types"

	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/provider/puzzle"
	"github.com/John-Robertt/puzzlestream/internal/query"
	"github.com/John-Robertt/puzzlestream/internal/resolve"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

// Site 是 addon 对远端站点的全部依赖；*puzzle.Client 实现它。
type Site interface {
	resolve.Site
	FetchMeta(ctx context.Context, slug string) (domain.FilmMeta, error)
}

// Dialer 用调用方 cookie 构造站点会话。
type Dialer func(cookie string) (Site, error)

// PuzzleDialer 返回绑定到固定站点配置的 Dialer。
func PuzzleDialer(site puzzle.SiteConfig) Dialer {
	return func(cookie string) (Site, error) {
		c, err := puzzle.Dial(site, cookie)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

type Service struct {
	dial   Dialer
	bridge resolve.Bridge
}

// NewService 构造 addon 服务；bridge 为 nil 时外部 id 一律没有结果。
func NewService(dial Dialer, bridge resolve.Bridge) *Service {
	return &Service{dial: dial, bridge: bridge}
}

func (s *Service) open(cred Credential) (Site, error) {
	if strings.TrimSpace(cred.Cookie) == "" {
		return nil, ErrMissingCredential
	}
	return s.dial(cred.Cookie)
}

func (s *Service) resolver(ctx context.Context, site Site) *resolve.Resolver {
	return resolve.New(site, s.bridge, resolve.WithObserver(resolve.NewLogObserver(*zerolog.Ctx(ctx))))
}

// Catalog 处理自由文本搜索：
// slug 字面量 → 单条结果，不访问远端；否则规范化 → 搜索 → （无结果且年份已知）探测。
func (s *Service) Catalog(ctx context.Context, cred Credential, term string) ([]types.MetaPreviewItem, error) {
	site, err := s.open(cred)
	if err != nil {
		return nil, err
	}
	return catalog(ctx, site, term), nil
}

func catalog(ctx context.Context, site Site, term string) []types.MetaPreviewItem {
	log := zerolog.Ctx(ctx)
	term = strings.TrimSpace(term)
	if term == "" {
		return []types.MetaPreviewItem{}
	}
	if c, ok := query.LiteralCandidate(term); ok {
		return []types.MetaPreviewItem{toPreview(c)}
	}

	q := query.Normalize(term)
	cands, err := site.Search(ctx, q)
	if err != nil {
		log.Warn().Err(err).Str("title", q.Title).Int("year", q.Year).Msg("搜索失败")
	}
	if len(cands) == 0 && q.HasYear() {
		if c, ok := site.Probe(ctx, q.Title, q.Year); ok {
			cands = []domain.Candidate{c}
		}
	}

	out := make([]types.MetaPreviewItem, 0, len(cands))
	for _, c := range cands {
		out = append(out, toPreview(c))
	}
	return out
}

// Meta 返回详情；找不到时返回 nil（响应为 {"meta": null}）。
func (s *Service) Meta(ctx context.Context, cred Credential, id string) (*types.MetaItem, error) {
	site, err := s.open(cred)
	if err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx)
	ref := domain.ParseContentRef(id)

	r := s.resolver(ctx, site)
	t, ok := r.Lookup(ctx, ref)
	if !ok {
		return nil, nil
	}
	c, ok := r.FindCandidate(ctx, t)
	if !ok {
		return nil, nil
	}

	fm, err := site.FetchMeta(ctx, c.Slug)
	if err != nil {
		log.Warn().Err(err).Str("slug", c.Slug).Msg("详情页获取失败")
		if ref.Kind == domain.RefInternal {
			return nil, nil
		}
		// 外部 id 已经定位到候选：用候选字段兜底。
		fm = domain.FilmMeta{Slug: c.Slug, Title: c.Title, Year: c.Year, Poster: c.Poster}
	}
	m := toMeta(fm, puzzleSite(site))
	m.ID = ref.Raw
	return &m, nil
}

// Stream 解析 id 并返回可播放的 HLS 流；没有流时返回空列表。
func (s *Service) Stream(ctx context.Context, cred Credential, id string) ([]Stream, error) {
	site, err := s.open(cred)
	if err != nil {
		return nil, err
	}
	res, _ := s.resolver(ctx, site).Resolve(ctx, domain.ParseContentRef(id))
	if !res.HasURL() {
		return []Stream{}, nil
	}
	return []Stream{{
		StreamItem: types.StreamItem{
			URL:   res.URL,
			Title: displayTitle(slug.Humanize(res.Slug), slug.YearOf(res.Slug)),
		},
		Name: "Puzzle",
		BehaviorHints: &StreamBehaviorHints{
			BingeGroup: "puzzlestream-hls",
		},
	}}, nil
}

func toPreview(c domain.Candidate) types.MetaPreviewItem {
	return types.MetaPreviewItem{
		ID:          domain.InternalID(c.Slug),
		Type:        ContentTypeMovie,
		Name:        c.Title,
		Poster:      c.Poster,
		ReleaseInfo: releaseInfo(c.Year),
	}
}

func toMeta(fm domain.FilmMeta, site *puzzle.SiteConfig) types.MetaItem {
	m := types.MetaItem{
		ID:          domain.InternalID(fm.Slug),
		Type:        ContentTypeMovie,
		Name:        fm.Title,
		Poster:      fm.Poster,
		Background:  fm.Background,
		Description: fm.Description,
		ReleaseInfo: releaseInfo(fm.Year),
		Genres:      fm.Genres,
	}
	if site != nil {
		m.Website = site.FilmURL(fm.Slug)
	}
	return m
}

// puzzleSite 只在真实站点客户端上取站点配置（用于 website 链接）。
func puzzleSite(site Site) *puzzle.SiteConfig {
	if c, ok := site.(*puzzle.Client); ok {
		sc := c.Site()
		return &sc
	}
	return nil
}

func releaseInfo(year int) string {
	if year <= 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func displayTitle(title string, year int) string {
	if year <= 0 {
		return title
	}
	return title + " (" + strconv.Itoa(year) + ")"
}
