package storage

import (
	"sync/atomic"
	"time"

	"github.com/LJTian/CoinPulse/internal/collector"
	"github.com/LJTian/CoinPulse/internal/ticker"
)

// Snapshot 某一时刻的完整应用状态。发布后不再修改，读方可直接持有。
type Snapshot struct {
	Articles      []collector.Article
	NewsError     string
	NewsUpdatedAt time.Time
	// NewsLoaded 至少完成过一轮新闻采集
	NewsLoaded bool

	Quotes          []ticker.Quote
	TickerError     string
	TickerUpdatedAt time.Time
	// PriceGeneration 当前报价对应的拉取轮次，用于丢弃迟到的旧结果
	PriceGeneration uint64
	History         map[string][]float64
}

// Store 持有当前快照；写入方（scheduler）每次复制后整体替换，新闻与行情两条流水线互不覆盖
type Store struct {
	cur atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&Snapshot{History: map[string][]float64{}})
	return s
}

// Snapshot 返回当前快照，不要修改其中的切片和 map
func (s *Store) Snapshot() *Snapshot {
	return s.cur.Load()
}

// update 复制当前快照交给 mutate 修改，CAS 失败则基于最新快照重试。
// mutate 返回 false 表示放弃本次写入。
func (s *Store) update(mutate func(next *Snapshot) bool) bool {
	for {
		prev := s.cur.Load()
		next := *prev
		if !mutate(&next) {
			return false
		}
		if s.cur.CompareAndSwap(prev, &next) {
			return true
		}
	}
}

// ReplaceNews 整批替换文章列表；errMsg 非空时列表被错误信息取代
func (s *Store) ReplaceNews(articles []collector.Article, errMsg string, at time.Time) {
	s.update(func(next *Snapshot) bool {
		if errMsg != "" {
			next.Articles = nil
		} else {
			next.Articles = articles
		}
		next.NewsError = errMsg
		next.NewsUpdatedAt = at
		next.NewsLoaded = true
		return true
	})
}

// ReplaceQuotes 仅当 generation 比已生效的更新时才写入，返回是否生效
func (s *Store) ReplaceQuotes(generation uint64, quotes []ticker.Quote, history map[string][]float64, at time.Time) bool {
	return s.update(func(next *Snapshot) bool {
		if generation <= next.PriceGeneration {
			return false
		}
		next.PriceGeneration = generation
		next.Quotes = quotes
		next.History = history
		next.TickerError = ""
		next.TickerUpdatedAt = at
		return true
	})
}

// MarkTickerFailed 行情为空时才展示降级提示，已有报价则静默保留旧数据。返回是否进入降级状态。
func (s *Store) MarkTickerFailed(msg string) bool {
	return s.update(func(next *Snapshot) bool {
		if len(next.Quotes) > 0 {
			return false
		}
		next.TickerError = msg
		return true
	})
}
