package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/CoinPulse/internal/fetch"
	"github.com/mmcdole/gofeed"
)

const (
	DefaultCoinDeskRSS     = "https://www.coindesk.com/arc/outboundfeeds/rss/"
	DefaultRSS2JSONURL     = "https://api.rss2json.com/v1/api.json"
	rss2jsonPubDateLayout  = "2006-01-02 15:04:05"
	coindeskRSSContentType = "application/rss+xml, application/xml;q=0.9, */*;q=0.8"
)

// CoinDeskFetcher 默认经 rss2json 获取 CoinDesk RSS（根字段 items）；
// Direct 为 true 时直接拉 RSS 并用 gofeed 解析，不依赖 rss2json 的配额。
type CoinDeskFetcher struct {
	client   *fetch.Client
	rss2json string
	feedURL  string
	apiKey   string
	Direct   bool
	parser   *gofeed.Parser
}

func NewCoinDeskFetcher(client *fetch.Client, rss2jsonURL, feedURL, apiKey string, direct bool) *CoinDeskFetcher {
	if rss2jsonURL == "" {
		rss2jsonURL = DefaultRSS2JSONURL
	}
	if feedURL == "" {
		feedURL = DefaultCoinDeskRSS
	}
	return &CoinDeskFetcher{
		client:   client,
		rss2json: rss2jsonURL,
		feedURL:  feedURL,
		apiKey:   apiKey,
		Direct:   direct,
		parser:   gofeed.NewParser(),
	}
}

func (c *CoinDeskFetcher) Name() Source {
	return SourceCoinDesk
}

type rss2jsonResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Items   []rss2jsonItem `json:"items"`
}

type rss2jsonItem struct {
	Title       string `json:"title"`
	PubDate     string `json:"pubDate"`
	Link        string `json:"link"`
	Thumbnail   string `json:"thumbnail"`
	Description string `json:"description"`
	Enclosure   struct {
		Link string `json:"link"`
	} `json:"enclosure"`
}

func (c *CoinDeskFetcher) Fetch(ctx context.Context) ([]Article, error) {
	if c.Direct {
		return c.fetchDirect(ctx)
	}

	u, err := withQuery(c.rss2json, "rss_url", c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("coindesk: %w", err)
	}
	if u, err = withQuery(u, "api_key", c.apiKey); err != nil {
		return nil, fmt.Errorf("coindesk: %w", err)
	}

	resp, err := c.client.GetWithRetry(ctx, u, nil, singleAttempt)
	if err != nil {
		return nil, fmt.Errorf("coindesk: %w", err)
	}

	var raw rss2jsonResponse
	if err := fetch.DecodeJSON(resp, &raw); err != nil {
		return nil, fmt.Errorf("coindesk: %w", err)
	}
	if raw.Status != "" && !strings.EqualFold(raw.Status, "ok") {
		return nil, fmt.Errorf("coindesk: rss2json status %q: %s", raw.Status, raw.Message)
	}
	if raw.Items == nil {
		return nil, fmt.Errorf("coindesk: %w: missing items", fetch.ErrParse)
	}

	out := make([]Article, 0, len(raw.Items))
	for _, it := range raw.Items {
		out = append(out, c.normalize(it))
	}
	return out, nil
}

func (c *CoinDeskFetcher) normalize(it rss2jsonItem) Article {
	published := parseTimeLayouts(it.PubDate, rss2jsonPubDateLayout, time.RFC1123Z, time.RFC3339)
	image := firstNonEmpty(it.Thumbnail, it.Enclosure.Link)
	return buildArticle(SourceCoinDesk, it.Title, it.Description, image, it.Link, published)
}

func (c *CoinDeskFetcher) fetchDirect(ctx context.Context) ([]Article, error) {
	resp, err := c.client.GetWithRetry(ctx, c.feedURL, map[string]string{"Accept": coindeskRSSContentType}, singleAttempt)
	if err != nil {
		return nil, fmt.Errorf("coindesk rss: %w", err)
	}
	defer resp.Body.Close()

	feed, err := c.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coindesk rss: %w: %w", fetch.ErrParse, err)
	}

	out := make([]Article, 0, len(feed.Items))
	for _, it := range feed.Items {
		out = append(out, c.normalizeFeedItem(it))
	}
	return out, nil
}

func (c *CoinDeskFetcher) normalizeFeedItem(it *gofeed.Item) Article {
	var published time.Time
	if it.PublishedParsed != nil {
		published = it.PublishedParsed.UTC()
	}
	var image string
	if it.Image != nil {
		image = it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if image != "" {
			break
		}
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			image = enc.URL
		}
	}
	return buildArticle(SourceCoinDesk, it.Title, it.Description, image, it.Link, published)
}
