package metabridge

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/domain"
)

// Source 是单个元数据来源。
type Source interface {
	Name() string
	Lookup(ctx context.Context, ref domain.ContentRef) (domain.SearchQuery, bool, error)
}

// Router 按 id 类型把查询分派给来源，按顺序尝试直到命中：
// - IMDb：Cinemeta → TMDB（已配置时）
// - TMDB：TMDB
// 其它类型一律没有数据。
type Router struct {
	byKind map[domain.RefKind][]Source
}

func NewRouter(cinemeta *Cinemeta, tmdb *TMDB) *Router {
	r := &Router{byKind: make(map[domain.RefKind][]Source, 2)}
	if cinemeta != nil {
		r.byKind[domain.RefIMDb] = append(r.byKind[domain.RefIMDb], cinemeta)
	}
	if tmdb.IsConfigured() {
		r.byKind[domain.RefIMDb] = append(r.byKind[domain.RefIMDb], tmdb)
		r.byKind[domain.RefTMDB] = append(r.byKind[domain.RefTMDB], tmdb)
	}
	return r
}

// Lookup 返回第一个命中的来源结果；全部未命中且至少一个来源失败时返回最后的错误。
func (r *Router) Lookup(ctx context.Context, ref domain.ContentRef) (domain.SearchQuery, bool, error) {
	sources := r.byKind[ref.Kind]
	if len(sources) == 0 {
		zerolog.Ctx(ctx).Debug().Str("ref", ref.Raw).Str("kind", string(ref.Kind)).Msg("没有可用的元数据来源")
		return domain.SearchQuery{}, false, nil
	}

	var lastErr error
	for _, s := range sources {
		q, ok, err := s.Lookup(ctx, ref)
		if err != nil {
			if !errors.Is(err, ErrUnsupportedRef) {
				lastErr = err
			}
			zerolog.Ctx(ctx).Debug().Err(err).Str("source", s.Name()).Str("ref", ref.Raw).Msg("元数据来源失败")
			continue
		}
		if ok {
			return q, true, nil
		}
	}
	return domain.SearchQuery{}, false, lastErr
}
