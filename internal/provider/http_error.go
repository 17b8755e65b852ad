package provider

import (
	"errors"
	"fmt"
	"strings"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// RemoteUnavailableError 表示远端站点不可达或返回了传输层失败（网络错误/超时/非 2xx）。
//
// 约束：该错误只向上报告，不在内部重试；编排层把它视为“本层没有结果”并继续降级。
type RemoteUnavailableError struct {
	Op  string // "search" / "film"
	URL string
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	if e == nil {
		return "remote unavailable"
	}
	if e.Err == nil {
		return fmt.Sprintf("remote unavailable: op=%s url=%s", e.Op, e.URL)
	}
	return fmt.Sprintf("remote unavailable: op=%s url=%s: %v", e.Op, e.URL, e.Err)
}

func (e *RemoteUnavailableError) Unwrap() error { return e.Err }

// IsRemoteUnavailable 判断 err 链上是否有 *RemoteUnavailableError。
func IsRemoteUnavailable(err error) bool {
	var e *RemoteUnavailableError
	return errors.As(err, &e)
}

// StatusCode 返回 err 链上的 HTTP 状态码；没有则返回 0。
func StatusCode(err error) int {
	var hs *HTTPStatusError
	if errors.As(err, &hs) {
		return hs.StatusCode
	}
	return 0
}
