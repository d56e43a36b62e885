package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMaxRetries = 3
	// 429 未携带可解析的 Retry-After 时的等待时长
	DefaultRetryAfter = 60 * time.Second
)

// SleepFunc 阻塞 d 时长，ctx 取消时提前返回 ctx.Err()
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client 在 http.Client 外包一层重试：429 按 Retry-After 等待，其余失败按 2^attempt 秒指数退避。
// 退避不带抖动，多个调用方同时失败时会在同一时刻重试。
type Client struct {
	HTTP       *http.Client
	MaxRetries int
	Sleep      SleepFunc
	Logger     *slog.Logger
}

// NewClient timeout 为 0 表示不设置整体超时
func NewClient(timeout time.Duration, maxRetries int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		MaxRetries: maxRetries,
		Sleep:      sleepContext,
		Logger:     logger,
	}
}

// FetchWithRetry 执行 req 直到拿到 2xx 响应或用尽 maxRetries 轮。
// maxRetries <= 0 时使用 c.MaxRetries，仍为 0 则用 DefaultMaxRetries。
// 429 占用一轮但不触发指数退避，最后一轮不再等待；所有轮次都是 429 时返回 *RateLimitedError。
// 成功时调用方负责关闭 resp.Body。
func (c *Client) FetchWithRetry(ctx context.Context, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = c.MaxRetries
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	url := req.URL.Redacted()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := hc.Do(req.Clone(ctx))
		if err == nil && resp.StatusCode == http.StatusTooManyRequests {
			wait := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
			drain(resp)
			lastErr = &RateLimitedError{URL: url, RetryAfter: wait}
			c.logger().Warn("rate limited", "url", url, "attempt", attempt+1, "retry_after", wait)
			if attempt == maxRetries-1 {
				break
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
			}
			continue
		}

		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
			}
			lastErr = fmt.Errorf("%w: %w", ErrNetwork, err)
		} else {
			drain(resp)
			lastErr = &StatusError{URL: url, StatusCode: resp.StatusCode}
		}

		if attempt == maxRetries-1 {
			break
		}
		backoff := time.Duration(1<<attempt) * time.Second
		c.logger().Debug("request failed, backing off", "url", url, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
		if err := sleep(ctx, backoff); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
	}

	return nil, lastErr
}

// GetWithRetry 构造 GET 请求并附带 headers 后调用 FetchWithRetry
func (c *Client) GetWithRetry(ctx context.Context, rawURL string, headers map[string]string, maxRetries int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.FetchWithRetry(ctx, req, maxRetries)
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// parseRetryAfter 支持秒数与 HTTP 日期两种格式，无法解析时返回 DefaultRetryAfter
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return DefaultRetryAfter
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return DefaultRetryAfter
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	_ = resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
