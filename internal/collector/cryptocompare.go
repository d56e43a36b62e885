package collector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/LJTian/CoinPulse/internal/fetch"
)

const DefaultCryptoCompareURL = "https://min-api.cryptocompare.com/data/v2/news/?lang=EN"

// CryptoCompareFetcher 拉取 CryptoCompare 新闻，根字段为 Data
type CryptoCompareFetcher struct {
	client   *fetch.Client
	endpoint string
	apiKey   string
}

func NewCryptoCompareFetcher(client *fetch.Client, endpoint, apiKey string) *CryptoCompareFetcher {
	if endpoint == "" {
		endpoint = DefaultCryptoCompareURL
	}
	return &CryptoCompareFetcher{client: client, endpoint: endpoint, apiKey: apiKey}
}

func (c *CryptoCompareFetcher) Name() Source {
	return SourceCryptoCompare
}

type ccResponse struct {
	Data []ccItem `json:"Data"`
}

type ccItem struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	ImageURL    string `json:"imageurl"`
	URL         string `json:"url"`
	PublishedOn int64  `json:"published_on"`
}

func (c *CryptoCompareFetcher) Fetch(ctx context.Context) ([]Article, error) {
	u, err := withQuery(c.endpoint, "api_key", c.apiKey)
	if err != nil {
		return nil, fmt.Errorf("cryptocompare: %w", err)
	}

	resp, err := c.client.GetWithRetry(ctx, u, nil, singleAttempt)
	if err != nil {
		return nil, fmt.Errorf("cryptocompare: %w", err)
	}

	var raw ccResponse
	if err := fetch.DecodeJSON(resp, &raw); err != nil {
		return nil, fmt.Errorf("cryptocompare: %w", err)
	}
	if raw.Data == nil {
		return nil, fmt.Errorf("cryptocompare: %w: missing Data", fetch.ErrParse)
	}

	out := make([]Article, 0, len(raw.Data))
	for _, it := range raw.Data {
		out = append(out, c.normalize(it))
	}
	return out, nil
}

func (c *CryptoCompareFetcher) normalize(it ccItem) Article {
	var published time.Time
	if it.PublishedOn > 0 {
		published = time.Unix(it.PublishedOn, 0).UTC()
	}
	return buildArticle(SourceCryptoCompare, it.Title, it.Body, it.ImageURL, it.URL, published)
}

// withQuery 在已有 query 的 endpoint 上追加参数，value 为空时原样返回
func withQuery(endpoint, key, value string) (string, error) {
	if value == "" {
		return endpoint, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
