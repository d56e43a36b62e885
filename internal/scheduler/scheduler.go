package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

const (
	DefaultNewsSpec  = "@every 5m"
	DefaultPriceSpec = "@every 60s"
)

// Scheduler 新闻与行情各自独立的定时任务，互不加锁；行情失败后的补拉由 PricePipeline 自己安排
type Scheduler struct {
	cron   *cron.Cron
	news   *NewsPipeline
	prices *PricePipeline
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(newsSpec, priceSpec string, news *NewsPipeline, prices *PricePipeline, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if newsSpec == "" {
		newsSpec = DefaultNewsSpec
	}
	if priceSpec == "" {
		priceSpec = DefaultPriceSpec
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithLogger(cronLogger{logger: logger.With("component", "cron")}))

	s := &Scheduler{
		cron:   c,
		news:   news,
		prices: prices,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	prices.baseCtx = ctx

	if _, err := c.AddFunc(newsSpec, s.runNews); err != nil {
		cancel()
		return nil, err
	}
	if _, err := c.AddFunc(priceSpec, s.runPrices); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Start 启动定时器并立即各跑一轮
func (s *Scheduler) Start() {
	s.cron.Start()
	go s.runNews()
	go s.runPrices()
}

// Stop 停止定时器、取消待执行的补拉，并等待正在运行的 cron 任务结束或 ctx 到期
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 同步执行一轮新闻和行情采集，方便手动触发
func (s *Scheduler) RunOnce(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, _, err := s.news.Run(ctx); err != nil {
			s.logger.Error("news run failed", "error", err)
		}
	}()
	if err := s.prices.Run(ctx); err != nil {
		s.logger.Error("price run failed", "error", err)
	}
	<-done
}

func (s *Scheduler) runNews() {
	n, shared, err := s.news.Run(s.ctx)
	if err != nil {
		return
	}
	if shared {
		s.logger.Debug("news tick joined an in-flight cycle", "articles", n)
	}
}

func (s *Scheduler) runPrices() {
	_ = s.prices.Run(s.ctx)
}

// cronLogger 把 cron 的日志转到 slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
