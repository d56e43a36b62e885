package ticker

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/LJTian/CoinPulse/internal/fetch"
)

const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price"

// Coin CoinGecko id 与展示代码的映射
type Coin struct {
	ID     string
	Symbol string
}

// DefaultCoins 行情条展示顺序
var DefaultCoins = []Coin{
	{"bitcoin", "BTC"},
	{"ethereum", "ETH"},
	{"binancecoin", "BNB"},
	{"cardano", "ADA"},
	{"solana", "SOL"},
	{"ripple", "XRP"},
	{"dogecoin", "DOGE"},
	{"polkadot", "DOT"},
}

// Quote 单个币种的一次报价，每轮拉取重新生成
type Quote struct {
	Symbol           string  `json:"symbol"`
	PriceUSD         float64 `json:"priceUsd"`
	Change24hPercent float64 `json:"change24hPercent"`
	Signal           Signal  `json:"signal"`
}

// PriceFeed 便于 scheduler 测试时替换
type PriceFeed interface {
	FetchPrices(ctx context.Context) ([]Quote, error)
}

// CoinGecko 通过 simple/price 接口批量拉取 USD 价格与 24h 涨跌幅
type CoinGecko struct {
	client   *fetch.Client
	endpoint string
	coins    []Coin
}

func NewCoinGecko(client *fetch.Client, endpoint string, coins []Coin) *CoinGecko {
	if endpoint == "" {
		endpoint = DefaultCoinGeckoURL
	}
	if len(coins) == 0 {
		coins = DefaultCoins
	}
	return &CoinGecko{client: client, endpoint: endpoint, coins: coins}
}

// 字段用 any 接收，非数字（null、字符串）的条目跳过而不是让整个响应解析失败
type geckoPrice struct {
	USD       any `json:"usd"`
	Change24h any `json:"usd_24h_change"`
}

func (g *CoinGecko) FetchPrices(ctx context.Context) ([]Quote, error) {
	u, err := g.requestURL()
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}

	resp, err := g.client.GetWithRetry(ctx, u, map[string]string{
		"Accept":        "application/json",
		"Cache-Control": "no-cache",
	}, fetch.DefaultMaxRetries)
	if err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}

	var raw map[string]geckoPrice
	if err := fetch.DecodeJSON(resp, &raw); err != nil {
		return nil, fmt.Errorf("coingecko: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("coingecko: %w: no price data received", fetch.ErrEmptyResult)
	}

	quotes := make([]Quote, 0, len(g.coins))
	for _, c := range g.coins {
		p, ok := raw[c.ID]
		if !ok {
			continue
		}
		price, okPrice := p.USD.(float64)
		change, okChange := p.Change24h.(float64)
		if !okPrice || !okChange {
			continue
		}
		quotes = append(quotes, Quote{
			Symbol:           c.Symbol,
			PriceUSD:         price,
			Change24hPercent: change,
			Signal:           DeriveSignal(change),
		})
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("coingecko: %w: no usable quotes", fetch.ErrEmptyResult)
	}
	return quotes, nil
}

func (g *CoinGecko) requestURL() (string, error) {
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	ids := make([]string, 0, len(g.coins))
	for _, c := range g.coins {
		ids = append(ids, c.ID)
	}
	q := u.Query()
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
