package resolve

import (
	"context"
	"errors"
	"slices"

	"github.com/John-Robertt/puzzlestream/internal/domain"
	"github.com/John-Robertt/puzzlestream/internal/slug"
)

// ErrNotApplicable 表示该策略不适用于当前 Target（记为 skipped，继续下一层）。
var ErrNotApplicable = errors.New("策略不适用")

// Target 是策略的输入：内部 slug 或 (title, year) 查询二选一。
type Target struct {
	Slug  string
	Query domain.SearchQuery

	// Tried 是前面各层已经提取过的 slug（按尝试顺序）。
	Tried []string
}

func (t Target) Internal() bool { return t.Slug != "" }

// Searcher / Extractor / Prober 是编排层对远端站点的全部依赖。
// *puzzle.Client 同时实现三者。
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.Candidate, error)
}

type Extractor interface {
	ExtractStream(ctx context.Context, slug string) (string, error)
}

type Prober interface {
	Probe(ctx context.Context, title string, year int) (domain.Candidate, bool)
}

type Site interface {
	Searcher
	Extractor
	Prober
}

// Strategy 是解析链中的一层。
//
// 约定：
// - 不适用时返回 ErrNotApplicable
// - 找到候选但没有流地址时返回 StreamURL 为空的候选与 nil（NoMatch 是值，不是错误）
// - 远端失败时返回 error；已经定位到的候选可以一并返回（用于轨迹）
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, t Target) (domain.Candidate, error)
}

// SlugShortcut 直接对内部 slug 提取流地址。
type SlugShortcut struct {
	Extractor Extractor
}

func (SlugShortcut) Name() string { return "slug" }

func (s SlugShortcut) Attempt(ctx context.Context, t Target) (domain.Candidate, error) {
	if !t.Internal() {
		return domain.Candidate{}, ErrNotApplicable
	}
	c := domain.Candidate{Slug: t.Slug, Title: slug.Humanize(t.Slug), Year: slug.YearOf(t.Slug)}
	u, err := s.Extractor.ExtractStream(ctx, t.Slug)
	c.StreamURL = u
	return c, err
}

// SearchThenExtract 搜索后取第一条候选（保持远端排序，不重排）并提取流地址。
type SearchThenExtract struct {
	Searcher  Searcher
	Extractor Extractor
}

func (SearchThenExtract) Name() string { return "search" }

func (s SearchThenExtract) Attempt(ctx context.Context, t Target) (domain.Candidate, error) {
	if t.Internal() || t.Query.Title == "" {
		return domain.Candidate{}, ErrNotApplicable
	}
	cands, err := s.Searcher.Search(ctx, t.Query)
	if err != nil {
		return domain.Candidate{}, err
	}
	if len(cands) == 0 {
		return domain.Candidate{}, nil
	}
	c := cands[0]
	u, err := s.Extractor.ExtractStream(ctx, c.Slug)
	c.StreamURL = u
	return c, err
}

// BruteProbe 按 (title, year) 猜 slug 直接探测。只有年份已知时才适用；
// 猜出的 slug 已被前面的层提取过时跳过。
type BruteProbe struct {
	Prober Prober
}

func (BruteProbe) Name() string { return "probe" }

func (s BruteProbe) Attempt(ctx context.Context, t Target) (domain.Candidate, error) {
	if t.Internal() || !t.Query.HasYear() {
		return domain.Candidate{}, ErrNotApplicable
	}
	guess := slug.Guess(t.Query.Title, t.Query.Year)
	if guess == "" || slices.Contains(t.Tried, guess) {
		return domain.Candidate{}, ErrNotApplicable
	}
	c, ok := s.Prober.Probe(ctx, t.Query.Title, t.Query.Year)
	if !ok {
		return domain.Candidate{}, nil
	}
	return c, nil
}
