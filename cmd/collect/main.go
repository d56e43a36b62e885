package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/LJTian/CoinPulse/internal/collector"
	"github.com/LJTian/CoinPulse/internal/config"
	"github.com/LJTian/CoinPulse/internal/fetch"
	"github.com/LJTian/CoinPulse/internal/logging"
	"github.com/LJTian/CoinPulse/internal/processor"
	"github.com/LJTian/CoinPulse/internal/scheduler"
	"github.com/LJTian/CoinPulse/internal/storage"
	"github.com/LJTian/CoinPulse/internal/ticker"
	"github.com/mattn/go-runewidth"
)

const titleWidth = 60

// 一个仅执行一次采集任务的命令行入口：拉一轮新闻和行情，打印到终端后退出
func main() {
	var (
		query   = flag.String("q", "", "search term")
		source  = flag.String("source", processor.SourceAll, "all, cryptocompare, coindesk or cryptopanic")
		sortBy  = flag.String("sort", string(processor.SortNewest), "newest or oldest")
		page    = flag.Int("page", 1, "page number")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	src, ok := processor.ParseSourceFilter(*source)
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid source %q\n", *source)
		os.Exit(2)
	}
	order, ok := processor.ParseSortOrder(*sortBy)
	if !ok {
		fmt.Fprintf(os.Stderr, "invalid sort %q\n", *sortBy)
		os.Exit(2)
	}

	client := fetch.NewClient(cfg.HTTPTimeout, cfg.HTTPMaxRetries, logger)
	store := storage.NewStore()
	news := scheduler.NewNewsPipeline([]collector.Fetcher{
		collector.NewCryptoCompareFetcher(client, cfg.Endpoints.CryptoCompare, cfg.CryptoCompareAPIKey),
		collector.NewCoinDeskFetcher(client, cfg.Endpoints.RSS2JSON, cfg.Endpoints.CoinDeskRSS, cfg.RSS2JSONAPIKey, cfg.CoinDeskDirectRSS),
		collector.NewCryptoPanicFetcher(client, cfg.Endpoints.CryptoPanic, cfg.CryptoPanicToken),
	}, store, logger)
	prices := scheduler.NewPricePipeline(
		ticker.NewCoinGecko(client, cfg.Endpoints.CoinGecko, ticker.DefaultCoins),
		ticker.NewHistory(ticker.DefaultHistoryLength, ticker.DefaultTracked...),
		store, cfg.PriceRetryDelay, logger,
	)

	s, err := scheduler.New(cfg.NewsCronSpec, cfg.PriceCronSpec, news, prices, logger)
	if err != nil {
		logger.Error("init scheduler failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	// 只执行一轮采集任务后退出
	s.RunOnce(ctx)
	_ = s.Stop(ctx)

	snap := store.Snapshot()
	printTicker(snap)
	fmt.Println()

	if snap.NewsError != "" {
		fmt.Println(snap.NewsError)
		os.Exit(1)
	}
	state := processor.NewQueryState()
	state.SetFilter(*query, src, order)
	filtered := state.Filtered(snap.Articles)
	if *page != 1 && !state.ChangePage(*page, len(filtered)) {
		fmt.Fprintf(os.Stderr, "page %d out of range\n", *page)
		os.Exit(2)
	}
	printNews(state.PageOf(filtered))
}

func printTicker(snap *storage.Snapshot) {
	if snap.TickerError != "" {
		fmt.Println(snap.TickerError)
		return
	}
	for _, q := range snap.Quotes {
		fmt.Printf("%-6s %14s %s %-8s %s\n",
			q.Symbol,
			ticker.FormatPrice(q.PriceUSD),
			ticker.Arrow(q.Change24hPercent),
			ticker.FormatPercentage(q.Change24hPercent),
			q.Signal,
		)
	}
}

func printNews(res processor.Result) {
	if len(res.Items) == 0 {
		fmt.Println("No articles found")
		return
	}
	for _, a := range res.Items {
		// 标题可能含中日文等宽字符，按显示宽度截断对齐
		title := runewidth.FillRight(runewidth.Truncate(a.Title, titleWidth, "..."), titleWidth)
		fmt.Printf("%s  %-13s %s\n", title, a.Source, a.PublishedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println(strings.Repeat("-", titleWidth))
	fmt.Printf("page %d/%d, %d articles\n", res.Page, res.TotalPages, res.Total)
}
