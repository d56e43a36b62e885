package api

import (
	"time"

	"github.com/LJTian/CoinPulse/internal/collector"
	"github.com/LJTian/CoinPulse/internal/processor"
	"github.com/LJTian/CoinPulse/internal/ticker"
)

type articleResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Summary     string `json:"summary"`
	ImageURL    string `json:"imageUrl"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
}

func newArticleResponse(a collector.Article) articleResponse {
	return articleResponse{
		Title:       a.Title,
		Description: a.Description,
		Summary:     processor.Summary(a.Description),
		ImageURL:    a.ImageURL,
		URL:         a.URL,
		Source:      a.Source.String(),
		PublishedAt: a.PublishedAt.UTC().Format(time.RFC3339),
	}
}

type newsResponse struct {
	Items      []articleResponse    `json:"items"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"totalPages"`
	Total      int                  `json:"total"`
	Pages      []processor.PageLink `json:"pages"`
	Query      processor.QueryState `json:"query"`
	Loading    bool                 `json:"loading"`
	UpdatedAt  string               `json:"updatedAt"`
}

type quoteResponse struct {
	Symbol    string        `json:"symbol"`
	PriceUSD  float64       `json:"priceUsd"`
	Price     string        `json:"price"`
	Change24h float64       `json:"change24hPercent"`
	Change    string        `json:"change"`
	Direction string        `json:"direction"`
	Signal    ticker.Signal `json:"signal"`
}

func newQuoteResponse(q ticker.Quote) quoteResponse {
	direction := "up"
	if q.Change24hPercent < 0 {
		direction = "down"
	}
	return quoteResponse{
		Symbol:    q.Symbol,
		PriceUSD:  q.PriceUSD,
		Price:     ticker.FormatPrice(q.PriceUSD),
		Change24h: q.Change24hPercent,
		Change:    ticker.FormatPercentage(q.Change24hPercent),
		Direction: direction,
		Signal:    q.Signal,
	}
}

type tickerResponse struct {
	Quotes    []quoteResponse `json:"quotes"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt string          `json:"updatedAt"`
}

type historyResponse struct {
	Symbol string    `json:"symbol"`
	Prices []float64 `json:"prices"`
}
