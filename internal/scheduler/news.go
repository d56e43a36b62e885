package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LJTian/CoinPulse/internal/collector"
	"github.com/LJTian/CoinPulse/internal/processor"
	"github.com/LJTian/CoinPulse/internal/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// NewsErrorMessage 所有来源都失败时替代文章列表展示的提示
const NewsErrorMessage = "Failed to fetch news articles"

var ErrAllSourcesFailed = errors.New("all news sources failed")

// NewsPipeline 并发拉取所有来源，等全部返回后按固定顺序合并并整体替换 Store 中的文章。
// 同一时刻只有一轮在跑，期间到来的触发直接复用这一轮的结果。
type NewsPipeline struct {
	fetchers []collector.Fetcher
	store    *storage.Store
	logger   *slog.Logger
	flight   singleflight.Group
	now      func() time.Time
}

func NewNewsPipeline(fetchers []collector.Fetcher, store *storage.Store, logger *slog.Logger) *NewsPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsPipeline{
		fetchers: fetchers,
		store:    store,
		logger:   logger.With("pipeline", "news"),
		now:      time.Now,
	}
}

// Run 返回本轮合并后的文章数；shared 为 true 表示复用了进行中的那一轮
func (p *NewsPipeline) Run(ctx context.Context) (count int, shared bool, err error) {
	v, err, shared := p.flight.Do("news", func() (any, error) {
		return p.collect(ctx)
	})
	if n, ok := v.(int); ok {
		count = n
	}
	return count, shared, err
}

func (p *NewsPipeline) collect(ctx context.Context) (int, error) {
	p.logger.Info("start news collect job", "sources", len(p.fetchers))

	results := make([]processor.SourceResult, len(p.fetchers))
	var g errgroup.Group
	for i, f := range p.fetchers {
		i, f := i, f
		g.Go(func() error {
			results[i] = p.fetchOne(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	merged, failed := processor.Merge(results)
	if len(p.fetchers) > 0 && failed == len(p.fetchers) {
		p.logger.Error("all news sources failed")
		p.store.ReplaceNews(nil, NewsErrorMessage, p.now())
		return 0, ErrAllSourcesFailed
	}

	p.store.ReplaceNews(merged, "", p.now())
	p.logger.Info("news collect job done", "articles", len(merged), "failed_sources", failed)
	return len(merged), nil
}

// fetchOne 单个来源的错误（含 panic）只影响该来源
func (p *NewsPipeline) fetchOne(ctx context.Context, f collector.Fetcher) (res processor.SourceResult) {
	name := f.Name()
	res.Source = name
	defer func() {
		if r := recover(); r != nil {
			res.Articles = nil
			res.Err = fmt.Errorf("%s: panic: %v", name, r)
			p.logger.Error("news source panicked", "source", name, "panic", r)
		}
	}()

	start := p.now()
	items, err := f.Fetch(ctx)
	if err != nil {
		p.logger.Warn("fetch news source failed", "source", name, "error", err)
		res.Err = err
		return res
	}
	if len(items) == 0 {
		p.logger.Info("news source returned 0 items", "source", name)
	}
	p.logger.Debug("news source fetched", "source", name, "items", len(items), "took", time.Since(start))
	res.Articles = items
	return res
}
