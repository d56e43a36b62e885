package processor

import (
	"github.com/LJTian/CoinPulse/internal/collector"
)

// SourceResult 单个来源一轮采集的结果；Err 非空时 Articles 视为空
type SourceResult struct {
	Source   collector.Source
	Articles []collector.Article
	Err      error
}

// Aggregate 按 cryptocompare、coindesk、cryptopanic 的固定顺序拼接，不跨来源去重。
// 输出长度恒等于各输入长度之和。
func Aggregate(cryptoCompare, coinDesk, cryptoPanic []collector.Article) []collector.Article {
	out := make([]collector.Article, 0, len(cryptoCompare)+len(coinDesk)+len(cryptoPanic))
	out = append(out, cryptoCompare...)
	out = append(out, coinDesk...)
	out = append(out, cryptoPanic...)
	return out
}

// Merge 接收任意完成顺序的结果，按固定来源顺序合并；同一来源出现多次时按传入顺序拼接。
// failed 为出错的来源数量。
func Merge(results []SourceResult) (merged []collector.Article, failed int) {
	bySource := make(map[collector.Source][]collector.Article, len(collector.Sources))
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		bySource[r.Source] = append(bySource[r.Source], r.Articles...)
	}
	return Aggregate(
		bySource[collector.SourceCryptoCompare],
		bySource[collector.SourceCoinDesk],
		bySource[collector.SourceCryptoPanic],
	), failed
}
