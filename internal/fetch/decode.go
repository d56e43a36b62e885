package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseBytes 单个响应体读取上限
const MaxResponseBytes = 2 << 20

// DecodeJSON 读取并关闭 resp.Body，解析失败时返回包裹 ErrParse 的错误
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseBytes)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	return nil
}
