package resolve

import (
	"fmt"
	"strings"
)

// Chain 是有序的策略列表。增加/调整层次只需要改列表，不改控制流。
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) (Chain, error) {
	seen := make(map[string]struct{}, len(strategies))
	out := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s == nil {
			return Chain{}, fmt.Errorf("strategy 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return Chain{}, fmt.Errorf("strategy.Name 不能为空")
		}
		if _, ok := seen[name]; ok {
			return Chain{}, fmt.Errorf("重复的 strategy：%q", name)
		}
		seen[name] = struct{}{}
		out = append(out, s)
	}
	return Chain{strategies: out}, nil
}

// DefaultChain 返回固定顺序：slug 直达 → 搜索后提取 → slug 探测。
func DefaultChain(site Site) Chain {
	return Chain{strategies: []Strategy{
		SlugShortcut{Extractor: site},
		SearchThenExtract{Searcher: site, Extractor: site},
		BruteProbe{Prober: site},
	}}
}

func (c Chain) Len() int { return len(c.strategies) }

func (c Chain) Names() []string {
	out := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		out = append(out, s.Name())
	}
	return out
}
