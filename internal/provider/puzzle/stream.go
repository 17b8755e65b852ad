package puzzle

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/puzzlestream/internal/slug"
)

// manifestAssignRE 是流地址提取的唯一文本契约：
// 页面脚本里存在一条 JS 字面量赋值（name = "…" 或 name: "…"），
// 其引号内的值以 .m3u8 结尾。只取第一条。
//
// 值里允许出现 JSON 风格的 "\/" 转义；协议相对地址（//cdn/…）补 https:。
// 站内根相对地址（/hls/…）原样返回，由 ExtractStream 按站点域名补全。
var manifestAssignRE = regexp.MustCompile(`[A-Za-z_$][\w$.]*["']?\s*[:=]\s*["']((?:https?:(?:\\?/){2}|\\?/)[^"'\s<>]+?\.m3u8)["']`)

// ExtractManifestURL 从详情页 HTML 中提取 HLS 清单地址。
// 找不到时返回 ("", false)；这表示“没有可用流”，不是错误。
func ExtractManifestURL(html []byte) (string, bool) {
	m := manifestAssignRE.FindSubmatch(html)
	if m == nil {
		return "", false
	}
	u := strings.ReplaceAll(string(m[1]), `\/`, "/")
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if !strings.HasSuffix(u, ".m3u8") {
		return "", false
	}
	return u, true
}

// ExtractStream 拉取 slug 对应的详情页并提取流地址。
//
// 返回：
// - (url, nil)：提取成功
// - ("", nil)：页面正常但没有清单赋值（未登录/区域限制/未上线）
// - ("", err)：HTTP 失败（*provider.RemoteUnavailableError）或 slug 非法
func (c *Client) ExtractStream(ctx context.Context, s string) (string, error) {
	if !slug.Valid(s) {
		return "", ErrInvalidSlug
	}
	body, err := c.get(ctx, "film", c.site.FilmPathFor(s))
	if err != nil {
		return "", err
	}
	u, ok := ExtractManifestURL(body)
	zerolog.Ctx(ctx).Debug().Str("slug", s).Bool("found", ok).Msg("提取流地址")
	if !ok {
		return "", nil
	}
	return resolveURL(c.site.BaseURL+"/", u), nil
}
