// Package metabridge 把外部 id（IMDb/TMDB）换成站点搜索需要的 (title, year)。
//
// 约束：
// - 只读、幂等的 JSON GET；不缓存
// - 404 视为“没有数据”（ok=false, err=nil），其余失败返回 error，由编排层吞掉
package metabridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound       = errors.New("元数据不存在")
	ErrAPIKeyMissing  = errors.New("TMDB API key 未配置")
	ErrAPIError       = errors.New("元数据接口错误")
	ErrUnsupportedRef = errors.New("不支持的 id 类型")
)

var yearRE = regexp.MustCompile(`(?:19|20)[0-9]{2}`)

type jsonClient struct {
	http   *http.Client
	logger zerolog.Logger
}

func (c jsonClient) doRequest(ctx context.Context, endpoint string, params url.Values, result any) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("构造请求失败：%w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("元数据请求失败")
		return fmt.Errorf("HTTP 请求失败：%w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: API key 无效", ErrAPIError)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("解析响应失败：%w", err)
	}
	return nil
}

// parseYear 取字符串里第一个 19xx/20xx（兼容 "1982"、"1982–1990"、"1982-06-25"）。
func parseYear(s string) int {
	m := yearRE.FindString(s)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}
