package puzzle

import (
	"net/url"
	"strings"
	"time"

	"github.com/John-Robertt/puzzlestream/internal/infra/httpx"
)

const (
	DefaultBaseURL    = "https://puzzle-movies.com"
	DefaultSearchPath = "/search"
	DefaultFilmPath   = "/films/"
)

// SiteConfig 是访问远端站点所需的全部固定参数（来源、UA、超时、路径）。
// 它作为显式值传入会话与 Client 构造函数，不存在全局状态。
type SiteConfig struct {
	// BaseURL 允许指定站点的可用域名（镜像域名/本地测试服务器）。
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	ProxyURL  string

	SearchPath string
	FilmPath   string
}

// WithDefaults 返回补齐默认值后的副本。
func (c SiteConfig) WithDefaults() SiteConfig {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = httpx.DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = httpx.DefaultTimeout
	}
	if c.SearchPath == "" {
		c.SearchPath = DefaultSearchPath
	}
	if c.FilmPath == "" {
		c.FilmPath = DefaultFilmPath
	}
	if !strings.HasSuffix(c.FilmPath, "/") {
		c.FilmPath += "/"
	}
	return c
}

// SearchPathFor 返回搜索页的 path+query：/search?query=<term>
func (c SiteConfig) SearchPathFor(term string) string {
	return c.SearchPath + "?query=" + url.QueryEscape(term)
}

// FilmPathFor 返回详情页 path：/films/<slug>
func (c SiteConfig) FilmPathFor(slug string) string {
	return c.FilmPath + slug
}

// FilmURL 返回详情页的绝对 URL（用于对外展示/Referer）。
func (c SiteConfig) FilmURL(slug string) string {
	return c.BaseURL + c.FilmPathFor(slug)
}
