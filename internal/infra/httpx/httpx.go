package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout 是单次请求的总超时（含读 body）。
	DefaultTimeout = 15 * time.Second
	// DefaultUserAgent 是站点会话的固定 UA；站点会拒绝 Go 默认的 Go-http-client/1.1。
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	metaRetryMax = 1
)

// Transport 把“固定 UA + Cookie 凭据 + keep-alive 策略 + 有界重试”固化为统一策略。
//
// 设计目标：provider 只负责“定位页面 + 解析 HTML”，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	// UserAgent 只在请求自身没有设置 UA 时生效。
	UserAgent string
	// Cookie 是调用方提供的原始 Cookie 头（例如 "session=abc; remember=1"）。
	Cookie string

	// RetryMax 表示最大重试次数（不含首次尝试）。站点会话固定为 0。
	RetryMax int

	// DisableKeepAlives 决定是否对 Request 设置 Close=true（额外保险）。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := cloneRequest(req)
		if r.Header.Get("User-Agent") == "" {
			ua := t.UserAgent
			if ua == "" {
				ua = DefaultUserAgent
			}
			r.Header.Set("User-Agent", ua)
		}
		if t.Cookie != "" && r.Header.Get("Cookie") == "" {
			r.Header.Set("Cookie", t.Cookie)
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误（更可解释）。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func cloneRequest(req *http.Request) *http.Request {
	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	return req.Clone(req.Context())
}

// SiteOptions 描述一个绑定到调用方凭据的站点会话。
type SiteOptions struct {
	UserAgent string
	Cookie    string
	Timeout   time.Duration
	ProxyURL  string
}

// NewSiteClient 构造访问远端电影站的 HTTP client。
//
// 规则：
// - 固定 UA + 调用方 Cookie
// - 不重试：远端失败直接上抛，由编排层决定降级
// - 总超时：opts.Timeout（<=0 时用 DefaultTimeout）
func NewSiteClient(opts SiteOptions) (*http.Client, error) {
	c, tr, err := newClient(strings.TrimSpace(opts.ProxyURL), opts.Timeout)
	if err != nil {
		return nil, err
	}
	tr.UserAgent = strings.TrimSpace(opts.UserAgent)
	tr.Cookie = strings.TrimSpace(opts.Cookie)
	tr.RetryMax = 0
	return c, nil
}

// NewMetaClient 构造访问元数据服务（Cinemeta/TMDB）的 HTTP client。
// 这类接口是幂等 JSON GET，允许一次有界重试。
func NewMetaClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	c, tr, err := newClient(strings.TrimSpace(proxyURL), timeout)
	if err != nil {
		return nil, err
	}
	tr.RetryMax = metaRetryMax
	return c, nil
}

func newClient(proxyURL string, timeout time.Duration) (*http.Client, *Transport, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	disableKeepAlives := false

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, nil, errors.New("proxy url 缺少 scheme 或 host")
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tr := &Transport{
		Base:              base,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, tr, nil
}
