package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/LJTian/CoinPulse/internal/fetch"
)

const DefaultCryptoPanicURL = "https://cryptopanic.com/api/v1/posts/?public=true"

// CryptoPanicFetcher 拉取 CryptoPanic 公共帖子，根字段为 results；接口不提供图片
type CryptoPanicFetcher struct {
	client    *fetch.Client
	endpoint  string
	authToken string
}

func NewCryptoPanicFetcher(client *fetch.Client, endpoint, authToken string) *CryptoPanicFetcher {
	if endpoint == "" {
		endpoint = DefaultCryptoPanicURL
	}
	return &CryptoPanicFetcher{client: client, endpoint: endpoint, authToken: authToken}
}

func (c *CryptoPanicFetcher) Name() Source {
	return SourceCryptoPanic
}

type cpResponse struct {
	Results []cpItem `json:"results"`
}

type cpItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}

func (c *CryptoPanicFetcher) Fetch(ctx context.Context) ([]Article, error) {
	u, err := withQuery(c.endpoint, "auth_token", c.authToken)
	if err != nil {
		return nil, fmt.Errorf("cryptopanic: %w", err)
	}

	resp, err := c.client.GetWithRetry(ctx, u, nil, singleAttempt)
	if err != nil {
		return nil, fmt.Errorf("cryptopanic: %w", err)
	}

	var raw cpResponse
	if err := fetch.DecodeJSON(resp, &raw); err != nil {
		return nil, fmt.Errorf("cryptopanic: %w", err)
	}
	if raw.Results == nil {
		return nil, fmt.Errorf("cryptopanic: %w: missing results", fetch.ErrParse)
	}

	out := make([]Article, 0, len(raw.Results))
	for _, it := range raw.Results {
		out = append(out, c.normalize(it))
	}
	return out, nil
}

func (c *CryptoPanicFetcher) normalize(it cpItem) Article {
	published := parseTimeLayouts(it.PublishedAt, time.RFC3339Nano, time.RFC3339)
	return buildArticle(SourceCryptoPanic, it.Title, it.Description, "", it.URL, published)
}
