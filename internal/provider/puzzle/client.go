// Package puzzle 实现远端电影站的搜索、slug 探测、详情页解析与流地址提取。
//
// 约束：
// - 站点的标记结构假设全部集中在 Selectors 与 ExtractManifestURL 里
// - 解析函数（ParseSearch/ParseFilm/ExtractManifestURL）是纯函数
// - Client 不做缓存、不做重试
package puzzle

import (
	"context"
	"errors"
	"fmt"

	"github.com/John-Robertt/puzzlestream/internal/provider"
)

// ErrInvalidSlug 表示 slug 不能直接作为 URL path 使用。
var ErrInvalidSlug = errors.New("非法 slug")

// Client 把站点的全部操作绑定到一个认证会话上（一个请求一个 Client）。
type Client struct {
	fetcher   provider.Fetcher
	site      SiteConfig
	selectors Selectors
}

// New 用任意 Fetcher 构造 Client；sel 为零值时按 site.FilmPath 生成默认选择器。
func New(f provider.Fetcher, site SiteConfig, sel Selectors) *Client {
	site = site.WithDefaults()
	if sel.isZero() {
		sel = DefaultSelectorsFor(site.FilmPath)
	}
	return &Client{fetcher: f, site: site, selectors: sel}
}

// Dial 用调用方 Cookie 构造会话并返回 Client。
func Dial(site SiteConfig, cookie string) (*Client, error) {
	s, err := NewSession(site, cookie)
	if err != nil {
		return nil, err
	}
	return New(s, site, Selectors{}), nil
}

// Site 返回补齐默认值后的站点配置。
func (c *Client) Site() SiteConfig { return c.site }

func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	if c.fetcher == nil {
		return nil, errors.New("fetcher 不能为空")
	}
	b, err := c.fetcher.Get(ctx, path)
	if err == nil {
		return b, nil
	}
	if provider.IsRemoteUnavailable(err) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nil, &provider.RemoteUnavailableError{Op: op, URL: c.site.BaseURL + path, Err: err}
}
