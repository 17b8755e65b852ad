package provider

import "context"

// Fetcher 是核心流程对“认证会话”的唯一依赖：GET(path) -> body。
//
// 约束：
// - Get 不做缓存、不做重试（这些由 httpx 层统一实现/禁止）
// - 传输失败与非 2xx 必须返回 *RemoteUnavailableError
type Fetcher interface {
	Get(ctx context.Context, path string) ([]byte, error)
}
