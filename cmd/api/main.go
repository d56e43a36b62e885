package main

import (
	"os"

	"github.com/LJTian/CoinPulse/internal/api"
	"github.com/LJTian/CoinPulse/internal/collector"
	"github.com/LJTian/CoinPulse/internal/config"
	"github.com/LJTian/CoinPulse/internal/fetch"
	"github.com/LJTian/CoinPulse/internal/logging"
	"github.com/LJTian/CoinPulse/internal/scheduler"
	"github.com/LJTian/CoinPulse/internal/storage"
	"github.com/LJTian/CoinPulse/internal/ticker"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	client := fetch.NewClient(cfg.HTTPTimeout, cfg.HTTPMaxRetries, logger.With("component", "fetch"))
	store := storage.NewStore()

	// 合并顺序固定：CryptoCompare → CoinDesk → CryptoPanic
	fetchers := []collector.Fetcher{
		collector.NewCryptoCompareFetcher(client, cfg.Endpoints.CryptoCompare, cfg.CryptoCompareAPIKey),
		collector.NewCoinDeskFetcher(client, cfg.Endpoints.RSS2JSON, cfg.Endpoints.CoinDeskRSS, cfg.RSS2JSONAPIKey, cfg.CoinDeskDirectRSS),
		collector.NewCryptoPanicFetcher(client, cfg.Endpoints.CryptoPanic, cfg.CryptoPanicToken),
	}
	news := scheduler.NewNewsPipeline(fetchers, store, logger.With("component", "news"))

	feed := ticker.NewCoinGecko(client, cfg.Endpoints.CoinGecko, ticker.DefaultCoins)
	history := ticker.NewHistory(ticker.DefaultHistoryLength, ticker.DefaultTracked...)
	prices := scheduler.NewPricePipeline(feed, history, store, cfg.PriceRetryDelay, logger.With("component", "prices"))

	s, err := scheduler.New(cfg.NewsCronSpec, cfg.PriceCronSpec, news, prices, logger)
	if err != nil {
		logger.Error("init scheduler failed", "error", err)
		os.Exit(1)
	}
	s.Start()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}
	api.NewServer(store, logger.With("component", "api")).RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	logger.Info("starting api server", "addr", addr)
	if err := r.Run(addr); err != nil {
		logger.Error("server exit", "error", err)
		os.Exit(1)
	}
}
