package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/CoinPulse/internal/processor"
	"github.com/LJTian/CoinPulse/internal/storage"
	"github.com/gin-gonic/gin"
)

type Server struct {
	store  *storage.Store
	logger *slog.Logger
}

func NewServer(store *storage.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: store, logger: logger}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/news", s.listNews)
		v1.GET("/ticker", s.getTicker)
		v1.GET("/history/:symbol", s.getHistory)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    data,
	})
}

// listNews 每次请求都从第 1 页的检索状态出发，再按 page 参数翻页；越界页码直接拒绝，不做纠正
func (s *Server) listNews(c *gin.Context) {
	source, valid := processor.ParseSourceFilter(c.DefaultQuery("source", processor.SourceAll))
	if !valid {
		fail(c, http.StatusBadRequest, "invalid_argument", "source must be one of all, cryptocompare, coindesk, cryptopanic")
		return
	}
	order, valid := processor.ParseSortOrder(c.DefaultQuery("sort", string(processor.SortNewest)))
	if !valid {
		fail(c, http.StatusBadRequest, "invalid_argument", "sort must be newest or oldest")
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid_argument", "page must be an integer")
		return
	}

	snap := s.store.Snapshot()
	if snap.NewsError != "" {
		fail(c, http.StatusServiceUnavailable, "news_unavailable", snap.NewsError)
		return
	}

	state := processor.NewQueryState()
	state.SetFilter(c.Query("q"), source, order)
	filtered := state.Filtered(snap.Articles)
	if page != 1 && !state.ChangePage(page, len(filtered)) {
		fail(c, http.StatusBadRequest, "page_out_of_range", "page out of range")
		return
	}

	res := state.PageOf(filtered)
	items := make([]articleResponse, 0, len(res.Items))
	for _, a := range res.Items {
		items = append(items, newArticleResponse(a))
	}

	ok(c, newsResponse{
		Items:      items,
		Page:       res.Page,
		TotalPages: res.TotalPages,
		Total:      res.Total,
		Pages:      processor.PageWindow(res.Page, res.TotalPages),
		Query:      state,
		Loading:    !snap.NewsLoaded,
		UpdatedAt:  formatTime(snap.NewsUpdatedAt),
	})
}

func (s *Server) getTicker(c *gin.Context) {
	snap := s.store.Snapshot()
	quotes := make([]quoteResponse, 0, len(snap.Quotes))
	for _, q := range snap.Quotes {
		quotes = append(quotes, newQuoteResponse(q))
	}
	ok(c, tickerResponse{
		Quotes:    quotes,
		Error:     snap.TickerError,
		UpdatedAt: formatTime(snap.TickerUpdatedAt),
	})
}

func (s *Server) getHistory(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	prices, found := s.store.Snapshot().History[symbol]
	if !found {
		fail(c, http.StatusNotFound, "not_found", "symbol is not tracked")
		return
	}
	if prices == nil {
		prices = []float64{}
	}
	ok(c, historyResponse{Symbol: symbol, Prices: prices})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// BasicAuthMiddleware 配置了 APP_BASIC_USER / APP_BASIC_PASS 时由 cmd/api 挂到整个 API 上，
// 用户名和密码都做常量时间比较；/health 不做认证。
func BasicAuthMiddleware(user, pass string) gin.HandlerFunc {
	wantUser, wantPass := []byte(user), []byte(pass)
	challenge := `Basic realm="CoinPulse", charset="UTF-8"`

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, found := c.Request.BasicAuth()
		match := subtle.ConstantTimeCompare([]byte(u), wantUser) & subtle.ConstantTimeCompare([]byte(p), wantPass)
		if !found || match != 1 {
			c.Header("WWW-Authenticate", challenge)
			fail(c, http.StatusUnauthorized, "unauthorized", "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}
