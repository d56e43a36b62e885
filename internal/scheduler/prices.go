package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LJTian/CoinPulse/internal/storage"
	"github.com/LJTian/CoinPulse/internal/ticker"
)

const (
	// TickerErrorMessage 行情为空且拉取失败时的提示
	TickerErrorMessage = "Price data temporarily unavailable"
	// DefaultPriceRetryDelay 拉取失败后额外补一次的延迟
	DefaultPriceRetryDelay = 10 * time.Second
)

// PricePipeline 每轮拉取带一个递增的轮次号，晚到的旧轮次结果直接丢弃，不写历史也不覆盖报价
type PricePipeline struct {
	feed       ticker.PriceFeed
	history    *ticker.History
	store      *storage.Store
	logger     *slog.Logger
	retryDelay time.Duration

	generation atomic.Uint64
	mu         sync.Mutex
	applied    uint64
	// retryPending 同一时刻最多挂一个补拉
	retryPending atomic.Bool

	// afterFunc 测试中替换为同步记录
	afterFunc func(d time.Duration, f func())
	baseCtx   context.Context
	now       func() time.Time
}

func NewPricePipeline(feed ticker.PriceFeed, history *ticker.History, store *storage.Store, retryDelay time.Duration, logger *slog.Logger) *PricePipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if retryDelay <= 0 {
		retryDelay = DefaultPriceRetryDelay
	}
	if history == nil {
		history = ticker.NewHistory(ticker.DefaultHistoryLength)
	}
	return &PricePipeline{
		feed:       feed,
		history:    history,
		store:      store,
		logger:     logger.With("pipeline", "prices"),
		retryDelay: retryDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		baseCtx: context.Background(),
		now:     time.Now,
	}
}

// Run 拉取一次行情。失败时：行情为空则进入降级提示，并在 retryDelay 后补拉一次（已有待执行的补拉时不再重复安排）。
func (p *PricePipeline) Run(ctx context.Context) error {
	gen := p.generation.Add(1)

	quotes, err := p.feed.FetchPrices(ctx)
	if err != nil {
		p.logger.Error("fetch crypto prices failed", "generation", gen, "error", err)
		if p.store.MarkTickerFailed(TickerErrorMessage) {
			p.logger.Warn("ticker is empty, showing degraded state")
		}
		p.scheduleRetry()
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen <= p.applied {
		p.logger.Info("discard stale price result", "generation", gen, "applied", p.applied)
		return nil
	}
	p.applied = gen
	for _, q := range quotes {
		p.history.Push(q.Symbol, q.PriceUSD)
	}
	p.store.ReplaceQuotes(gen, quotes, p.history.Snapshot(), p.now())
	p.logger.Info("crypto prices updated", "generation", gen, "quotes", len(quotes))
	return nil
}

func (p *PricePipeline) scheduleRetry() {
	if !p.retryPending.CompareAndSwap(false, true) {
		p.logger.Debug("price retry already pending")
		return
	}
	ctx := p.baseCtx
	p.logger.Info("schedule price retry", "after", p.retryDelay)
	p.afterFunc(p.retryDelay, func() {
		p.retryPending.Store(false)
		if ctx.Err() != nil {
			return
		}
		_ = p.Run(ctx)
	})
}

// History 只读访问
func (p *PricePipeline) History() *ticker.History {
	return p.history
}
