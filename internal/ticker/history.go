package ticker

import "sync"

// DefaultHistoryLength 每个币种保留的最近价格条数
const DefaultHistoryLength = 14

// DefaultTracked 记录价格历史的币种
var DefaultTracked = []string{"BTC", "ETH"}

// History 按币种保存最近 limit 个价格，超出时丢弃最旧的一条（FIFO）
type History struct {
	mu     sync.RWMutex
	limit  int
	series map[string][]float64
}

func NewHistory(limit int, tracked ...string) *History {
	if limit <= 0 {
		limit = DefaultHistoryLength
	}
	if len(tracked) == 0 {
		tracked = DefaultTracked
	}
	series := make(map[string][]float64, len(tracked))
	for _, s := range tracked {
		series[s] = make([]float64, 0, limit+1)
	}
	return &History{limit: limit, series: series}
}

// Push 非跟踪币种直接忽略，返回是否写入
func (h *History) Push(symbol string, price float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.series[symbol]
	if !ok {
		return false
	}
	s = append(s, price)
	if len(s) > h.limit {
		s = append(s[:0], s[len(s)-h.limit:]...)
	}
	h.series[symbol] = s
	return true
}

// Get 返回副本，调用方可随意修改
func (h *History) Get(symbol string) ([]float64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.series[symbol]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), s...), true
}

// Snapshot 所有跟踪币种的副本
func (h *History) Snapshot() map[string][]float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string][]float64, len(h.series))
	for k, v := range h.series {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

func (h *History) Limit() int {
	return h.limit
}
