// Package resolve 把查询规范化、远端搜索、slug 探测与流地址提取组合成分层解析策略。
//
// 约束：
// - Resolver 永远不返回错误：每一层的远端失败都被吸收为“该层无结果”并记录到轨迹
// - 各层严格串行；不跨请求缓存
package resolve

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

// Bridge 把外部 id 换成 (title, year)。没有数据时返回 ok=false。
type Bridge interface {
	Lookup(ctx context.Context, ref domain.ContentRef) (domain.SearchQuery, bool, error)
}

// bridgeStage 是元数据桥在轨迹中的名字。
const bridgeStage = "bridge"

// Attempt 记录一次策略尝试（用于解释降级原因）。
type Attempt struct {
	Strategy string
	Stage    string // domain.StageSkipped / StageFetch / StageEmpty / StageOK
	Slug     string
	Err      error
}

// Result 转成对外稳定的 report 结构。
func (a Attempt) Result() domain.AttemptResult {
	r := domain.AttemptResult{Strategy: a.Strategy, Stage: a.Stage, Slug: a.Slug}
	if a.Err != nil && !errors.Is(a.Err, ErrNotApplicable) {
		r.Error = a.Err.Error()
	}
	return r
}

func Results(attempts []Attempt) []domain.AttemptResult {
	out := make([]domain.AttemptResult, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, a.Result())
	}
	return out
}

type Resolver struct {
	site   Site
	bridge Bridge
	chain  Chain
	obs    Observer
}

type Option func(*Resolver)

func WithObserver(obs Observer) Option { return func(r *Resolver) { r.obs = obs } }

func WithChain(c Chain) Option { return func(r *Resolver) { r.chain = c } }

// New 构造绑定到单个站点会话的 Resolver（一个请求一个）。bridge 可以为 nil。
func New(site Site, bridge Bridge, opts ...Option) *Resolver {
	r := &Resolver{site: site, bridge: bridge, chain: DefaultChain(site)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve 把 ref 解析为 ResolvedStream，并返回各层尝试轨迹。
//
// 结果取最后一个带流地址的候选；都没有时取第一个定位到的候选 slug（URL 为空）；
// 元数据桥没有数据时返回空结果。
func (r *Resolver) Resolve(ctx context.Context, ref domain.ContentRef) (domain.ResolvedStream, []Attempt) {
	started := time.Now()
	var attempts []Attempt

	t, a, ok := r.lookup(ctx, ref)
	if a != nil {
		attempts = append(attempts, *a)
	}
	if r.obs != nil {
		r.obs.OnStart(ref, t)
		if a != nil {
			r.obs.OnAttempt(*a)
		}
	}
	if !ok {
		r.done(domain.ResolvedStream{}, started)
		return domain.ResolvedStream{}, attempts
	}

	res, trace := r.run(ctx, t)
	attempts = append(attempts, trace...)
	r.done(res, started)
	return res, attempts
}

// Lookup 只执行第一步：内部 ref 直接得到 slug，外部 ref 经元数据桥换成查询。
func (r *Resolver) Lookup(ctx context.Context, ref domain.ContentRef) (Target, bool) {
	t, _, ok := r.lookup(ctx, ref)
	return t, ok
}

func (r *Resolver) lookup(ctx context.Context, ref domain.ContentRef) (Target, *Attempt, bool) {
	if ref.Kind == domain.RefInternal {
		if ref.Slug == "" {
			return Target{}, nil, false
		}
		return Target{Slug: ref.Slug}, nil, true
	}

	a := &Attempt{Strategy: bridgeStage}
	if r.bridge == nil {
		a.Stage = domain.StageSkipped
		return Target{}, a, false
	}
	q, ok, err := r.bridge.Lookup(ctx, ref)
	switch {
	case err != nil:
		a.Stage, a.Err = domain.StageFetch, err
		zerolog.Ctx(ctx).Warn().Err(err).Str("ref", ref.Raw).Msg("元数据查询失败")
		return Target{}, a, false
	case !ok || q.Title == "":
		a.Stage = domain.StageEmpty
		return Target{}, a, false
	}
	a.Stage = domain.StageOK
	return Target{Query: q}, a, true
}

func (r *Resolver) run(ctx context.Context, t Target) (domain.ResolvedStream, []Attempt) {
	log := zerolog.Ctx(ctx)
	attempts := make([]Attempt, 0, r.chain.Len())
	var first string
	for _, s := range r.chain.strategies {
		c, err := s.Attempt(ctx, t)
		a := Attempt{Strategy: s.Name(), Slug: c.Slug, Err: err}
		switch {
		case errors.Is(err, ErrNotApplicable):
			a.Stage = domain.StageSkipped
		case err != nil:
			a.Stage = domain.StageFetch
			log.Warn().Err(err).Str("strategy", a.Strategy).Str("slug", c.Slug).Msg("解析层失败，继续降级")
		case c.StreamURL == "":
			a.Stage = domain.StageEmpty
		default:
			a.Stage = domain.StageOK
		}
		attempts = append(attempts, a)
		if r.obs != nil {
			r.obs.OnAttempt(a)
		}

		if c.Slug != "" {
			t.Tried = append(t.Tried, c.Slug)
			if first == "" {
				first = c.Slug
			}
		}
		if a.Stage == domain.StageOK {
			return domain.ResolvedStream{Slug: c.Slug, URL: c.StreamURL}, attempts
		}
	}
	return domain.ResolvedStream{Slug: first}, attempts
}

func (r *Resolver) done(res domain.ResolvedStream, started time.Time) {
	if r.obs != nil {
		r.obs.OnDone(res, time.Since(started))
	}
}

// FindCandidate 只定位候选、不要求流地址（meta 操作用于外部 id）：
// 内部 slug 直接返回；否则取搜索第一条，搜索无结果且年份已知时再探测。
func (r *Resolver) FindCandidate(ctx context.Context, t Target) (domain.Candidate, bool) {
	if t.Internal() {
		return domain.Candidate{Slug: t.Slug, Title: slug.Humanize(t.Slug), Year: slug.YearOf(t.Slug)}, true
	}
	if t.Query.Title == "" {
		return domain.Candidate{}, false
	}
	cands, err := r.site.Search(ctx, t.Query)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("title", t.Query.Title).Msg("搜索失败")
	}
	if len(cands) > 0 {
		return cands[0], true
	}
	if !t.Query.HasYear() {
		return domain.Candidate{}, false
	}
	return r.site.Probe(ctx, t.Query.Title, t.Query.Year)
}
