package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LJTian/CoinPulse/internal/collector"
	"github.com/LJTian/CoinPulse/internal/storage"
	"github.com/LJTian/CoinPulse/internal/ticker"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubFetcher struct {
	name  collector.Source
	items []collector.Article
	err   error
	delay time.Duration
	block chan struct{}
	calls atomic.Int32
}

func (s *stubFetcher) Name() collector.Source { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context) ([]collector.Article, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.items, s.err
}

type panicFetcher struct{}

func (panicFetcher) Name() collector.Source { return collector.SourceCoinDesk }
func (panicFetcher) Fetch(context.Context) ([]collector.Article, error) {
	panic("unexpected shape")
}

func arts(src collector.Source, titles ...string) []collector.Article {
	out := make([]collector.Article, 0, len(titles))
	for _, t := range titles {
		out = append(out, collector.Article{Title: t, Source: src})
	}
	return out
}

func TestNewsPipelineMergesInFixedOrderRegardlessOfLatency(t *testing.T) {
	store := storage.NewStore()
	fetchers := []collector.Fetcher{
		&stubFetcher{name: collector.SourceCryptoCompare, items: arts(collector.SourceCryptoCompare, "a1", "a2"), delay: 30 * time.Millisecond},
		&stubFetcher{name: collector.SourceCoinDesk},
		&stubFetcher{name: collector.SourceCryptoPanic, items: arts(collector.SourceCryptoPanic, "a3")},
	}
	p := NewNewsPipeline(fetchers, store, quietLogger())

	n, _, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
	got := store.Snapshot().Articles
	want := []string{"a1", "a2", "a3"}
	for i, w := range want {
		if got[i].Title != w {
			t.Fatalf("articles[%d] = %q, want %q", i, got[i].Title, w)
		}
	}
	if got[2].Source != collector.SourceCryptoPanic {
		t.Fatalf("a3 source = %s", got[2].Source)
	}
}

func TestNewsPipelineFailingSourceDoesNotAbortOthers(t *testing.T) {
	store := storage.NewStore()
	fetchers := []collector.Fetcher{
		&stubFetcher{name: collector.SourceCryptoCompare, err: errors.New("boom")},
		panicFetcher{},
		&stubFetcher{name: collector.SourceCryptoPanic, items: arts(collector.SourceCryptoPanic, "p1")},
	}
	p := NewNewsPipeline(fetchers, store, quietLogger())

	if _, _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	snap := store.Snapshot()
	if snap.NewsError != "" || len(snap.Articles) != 1 || snap.Articles[0].Title != "p1" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestNewsPipelineAllSourcesFailed(t *testing.T) {
	store := storage.NewStore()
	store.ReplaceNews(arts(collector.SourceCoinDesk, "old"), "", time.Now())
	fetchers := []collector.Fetcher{
		&stubFetcher{name: collector.SourceCryptoCompare, err: errors.New("a")},
		&stubFetcher{name: collector.SourceCoinDesk, err: errors.New("b")},
		&stubFetcher{name: collector.SourceCryptoPanic, err: errors.New("c")},
	}
	p := NewNewsPipeline(fetchers, store, quietLogger())

	_, _, err := p.Run(context.Background())
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("expected ErrAllSourcesFailed, got %v", err)
	}
	snap := store.Snapshot()
	if snap.NewsError != NewsErrorMessage || len(snap.Articles) != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestNewsPipelineSingleFlight(t *testing.T) {
	store := storage.NewStore()
	release := make(chan struct{})
	f := &stubFetcher{name: collector.SourceCoinDesk, items: arts(collector.SourceCoinDesk, "x"), block: release}
	p := NewNewsPipeline([]collector.Fetcher{f}, store, quietLogger())

	var wg sync.WaitGroup
	var sharedCount atomic.Int32
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, shared, _ := p.Run(context.Background()); shared {
				sharedCount.Add(1)
			}
		}()
	}
	// 等第一轮真正进入 Fetch 后再放行
	deadline := time.Now().Add(2 * time.Second)
	for f.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := f.calls.Load(); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}
	if sharedCount.Load() == 0 {
		t.Fatalf("expected concurrent runs to share the in-flight cycle")
	}
}

type stubFeed struct {
	mu      sync.Mutex
	results []feedResult
	calls   int
}

type feedResult struct {
	quotes []ticker.Quote
	err    error
	wait   chan struct{}
}

func (s *stubFeed) FetchPrices(ctx context.Context) ([]ticker.Quote, error) {
	s.mu.Lock()
	r := s.results[s.calls]
	s.calls++
	s.mu.Unlock()
	if r.wait != nil {
		<-r.wait
	}
	return r.quotes, r.err
}

type retryRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	funcs  []func()
}

func (r *retryRecorder) afterFunc(d time.Duration, f func()) {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.funcs = append(r.funcs, f)
	r.mu.Unlock()
}

// fire 同步执行第 i 个已安排的补拉
func (r *retryRecorder) fire(i int) {
	r.mu.Lock()
	f := r.funcs[i]
	r.mu.Unlock()
	f()
}

func newTestPricePipeline(feed ticker.PriceFeed, store *storage.Store, rec *retryRecorder) *PricePipeline {
	p := NewPricePipeline(feed, ticker.NewHistory(14, "BTC", "ETH"), store, 0, quietLogger())
	p.afterFunc = rec.afterFunc
	return p
}

func TestPricePipelineSuccessUpdatesQuotesAndHistory(t *testing.T) {
	store := storage.NewStore()
	feed := &stubFeed{results: []feedResult{
		{quotes: []ticker.Quote{{Symbol: "BTC", PriceUSD: 100}, {Symbol: "SOL", PriceUSD: 5}}},
	}}
	rec := &retryRecorder{}
	p := newTestPricePipeline(feed, store, rec)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	snap := store.Snapshot()
	if len(snap.Quotes) != 2 {
		t.Fatalf("quotes = %+v", snap.Quotes)
	}
	if h := snap.History["BTC"]; len(h) != 1 || h[0] != 100 {
		t.Fatalf("BTC history = %v", h)
	}
	if _, ok := snap.History["SOL"]; ok {
		t.Fatalf("SOL should not be tracked")
	}
	if len(rec.delays) != 0 {
		t.Fatalf("no retry expected on success")
	}
}

func TestPricePipelineFailureWithEmptyTickerShowsDegradedAndRetries(t *testing.T) {
	store := storage.NewStore()
	feed := &stubFeed{results: []feedResult{{err: errors.New("down")}}}
	rec := &retryRecorder{}
	p := newTestPricePipeline(feed, store, rec)

	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if store.Snapshot().TickerError != TickerErrorMessage {
		t.Fatalf("expected degraded ticker state")
	}
	if len(rec.delays) != 1 || rec.delays[0] != DefaultPriceRetryDelay {
		t.Fatalf("retry delays = %v, want [10s]", rec.delays)
	}
}

func TestPricePipelineFailureKeepsStaleQuotesButStillRetries(t *testing.T) {
	store := storage.NewStore()
	feed := &stubFeed{results: []feedResult{
		{quotes: []ticker.Quote{{Symbol: "ETH", PriceUSD: 3000}}},
		{err: errors.New("down")},
	}}
	rec := &retryRecorder{}
	p := newTestPricePipeline(feed, store, rec)

	_ = p.Run(context.Background())
	_ = p.Run(context.Background())

	snap := store.Snapshot()
	if snap.TickerError != "" || len(snap.Quotes) != 1 {
		t.Fatalf("stale quotes should stay silently: %+v", snap)
	}
	if len(rec.delays) != 1 {
		t.Fatalf("retry delays = %v, want one retry", rec.delays)
	}
}

func TestPricePipelineKeepsAtMostOnePendingRetry(t *testing.T) {
	store := storage.NewStore()
	down := errors.New("down")
	feed := &stubFeed{results: []feedResult{
		{err: down}, {err: down}, {err: down},
		{err: down},
		{quotes: []ticker.Quote{{Symbol: "BTC", PriceUSD: 1}}},
	}}
	rec := &retryRecorder{}
	p := newTestPricePipeline(feed, store, rec)

	// 连续三次定时拉取失败，只挂一个补拉
	for i := 0; i < 3; i++ {
		_ = p.Run(context.Background())
	}
	if len(rec.delays) != 1 {
		t.Fatalf("retry delays = %v, want exactly one pending retry", rec.delays)
	}

	// 补拉本身失败时重新安排下一次
	rec.fire(0)
	if len(rec.delays) != 2 {
		t.Fatalf("retry delays = %v, want a follow-up retry", rec.delays)
	}

	// 补拉成功后不再安排
	rec.fire(1)
	if len(rec.delays) != 2 {
		t.Fatalf("retry delays = %v, want no retry after success", rec.delays)
	}
	if snap := store.Snapshot(); snap.TickerError != "" || len(snap.Quotes) != 1 {
		t.Fatalf("expected recovered ticker, got %+v", snap)
	}
}

func TestPricePipelineDiscardsStaleGeneration(t *testing.T) {
	store := storage.NewStore()
	slow := make(chan struct{})
	feed := &stubFeed{results: []feedResult{
		{quotes: []ticker.Quote{{Symbol: "BTC", PriceUSD: 1}}, wait: slow},
		{quotes: []ticker.Quote{{Symbol: "BTC", PriceUSD: 2}}},
	}}
	rec := &retryRecorder{}
	p := newTestPricePipeline(feed, store, rec)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(context.Background())
	}()
	// 确保第一轮先领到轮次号
	deadline := time.Now().Add(2 * time.Second)
	for {
		feed.mu.Lock()
		calls := feed.calls
		feed.mu.Unlock()
		if calls > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	close(slow)
	<-done

	snap := store.Snapshot()
	if snap.Quotes[0].PriceUSD != 2 {
		t.Fatalf("stale generation overwrote newer quotes: %+v", snap.Quotes)
	}
	if h := snap.History["BTC"]; len(h) != 1 || h[0] != 2 {
		t.Fatalf("stale result must not touch history: %v", h)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	store := storage.NewStore()
	news := NewNewsPipeline(nil, store, quietLogger())
	prices := NewPricePipeline(&stubFeed{}, nil, store, 0, quietLogger())
	if _, err := New("not a spec", DefaultPriceSpec, news, prices, quietLogger()); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestSchedulerRunOnce(t *testing.T) {
	store := storage.NewStore()
	news := NewNewsPipeline([]collector.Fetcher{
		&stubFetcher{name: collector.SourceCryptoCompare, items: arts(collector.SourceCryptoCompare, "c")},
	}, store, quietLogger())
	feed := &stubFeed{results: []feedResult{{quotes: []ticker.Quote{{Symbol: "BTC", PriceUSD: 1}}}}}
	prices := NewPricePipeline(feed, nil, store, 0, quietLogger())

	s, err := New(DefaultNewsSpec, DefaultPriceSpec, news, prices, quietLogger())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	s.RunOnce(context.Background())

	snap := store.Snapshot()
	if len(snap.Articles) != 1 || len(snap.Quotes) != 1 {
		t.Fatalf("unexpected snapshot after RunOnce: %+v", snap)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
}
