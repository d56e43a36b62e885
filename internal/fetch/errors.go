package fetch

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNetwork 请求未拿到任何响应（连接失败、超时、ctx 取消等）
	ErrNetwork = errors.New("network error")
	// ErrParse 响应体不是期望的 JSON 结构
	ErrParse = errors.New("unexpected response shape")
	// ErrEmptyResult 响应合法但没有任何可用条目
	ErrEmptyResult = errors.New("empty result")
)

// StatusError 非 2xx 且非 429 的响应
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error: status %d (%s)", e.StatusCode, e.URL)
}

// RateLimitedError 所有重试轮次都收到 429 时返回
type RateLimitedError struct {
	URL        string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s (%s)", e.RetryAfter, e.URL)
}
