package puzzle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/puzzlestream/internal/infra/httpx"
	"github.com/John-Robertt/puzzlestream/internal/provider"
)

// ErrMissingCookie 表示调用方没有提供站点凭据。
var ErrMissingCookie = errors.New("缺少站点 cookie")

// ErrBodyTooLarge 表示页面超过 maxBodyBytes。
var ErrBodyTooLarge = errors.New("响应体超过上限")

// maxBodyBytes 是单个页面的读取上限；测试里可替换。
var maxBodyBytes int64 = 8 << 20

var _ provider.Fetcher = (*Session)(nil)

// Session 是绑定到单个调用方凭据的认证会话。
// 每个入站请求各自构造一个 Session，不跨请求共享。
type Session struct {
	baseURL string
	client  *http.Client
}

// NewSession 用原始 Cookie 值构造会话（固定来源、固定 UA、固定超时）。
func NewSession(site SiteConfig, cookie string) (*Session, error) {
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return nil, ErrMissingCookie
	}
	site = site.WithDefaults()
	c, err := httpx.NewSiteClient(httpx.SiteOptions{
		UserAgent: site.UserAgent,
		Cookie:    cookie,
		Timeout:   site.Timeout,
		ProxyURL:  site.ProxyURL,
	})
	if err != nil {
		return nil, err
	}
	return &Session{baseURL: site.BaseURL, client: c}, nil
}

// Get 请求 baseURL+path 并返回 body。
// 网络错误、超时与非 2xx 都以 *provider.RemoteUnavailableError 返回。
func (s *Session) Get(ctx context.Context, path string) ([]byte, error) {
	u := s.baseURL + path
	b, err := fetchURL(ctx, s.client, u)
	if err != nil {
		return nil, &provider.RemoteUnavailableError{Op: "get", URL: u, Err: err}
	}
	return b, nil
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &provider.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}
