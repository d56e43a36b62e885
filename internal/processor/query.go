package processor

import (
	"errors"
	"slices"
	"strings"

	"github.com/LJTian/CoinPulse/internal/collector"
)

// PageSize 每页文章数，固定 12
const PageSize = 12

// SourceAll 来源筛选的“全部”
const SourceAll = "all"

type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

var ErrPageOutOfRange = errors.New("page out of range")

// ParseSortOrder 空串按 newest 处理
func ParseSortOrder(v string) (SortOrder, bool) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(v))) {
	case "", SortNewest:
		return SortNewest, true
	case SortOldest:
		return SortOldest, true
	}
	return "", false
}

// ParseSourceFilter 接受 all 或具体来源，空串按 all 处理
func ParseSourceFilter(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == SourceAll {
		return SourceAll, true
	}
	if s, ok := collector.ParseSource(v); ok {
		return string(s), true
	}
	return "", false
}

// Filter 标题或描述包含 term（大小写不敏感）且来源匹配时保留；不修改入参。
// term 为空且 source 为 all 时返回内容与输入一致。
func Filter(articles []collector.Article, term, source string) []collector.Article {
	term = strings.ToLower(term)
	out := make([]collector.Article, 0, len(articles))
	for _, a := range articles {
		if source != SourceAll && string(a.Source) != source {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(a.Title), term) &&
			!strings.Contains(strings.ToLower(a.Description), term) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Sort 按发布时间稳定排序，时间相同的保持原有相对顺序；返回新切片
func Sort(articles []collector.Article, order SortOrder) []collector.Article {
	out := slices.Clone(articles)
	slices.SortStableFunc(out, func(a, b collector.Article) int {
		c := a.PublishedAt.Compare(b.PublishedAt)
		if order == SortOldest {
			return c
		}
		return -c
	})
	return out
}

// TotalPages ceil(n / size)
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate 返回第 page 页（从 1 开始）的子切片，越界时报 ErrPageOutOfRange 而不是自动纠正
func Paginate(sorted []collector.Article, page, size int) ([]collector.Article, error) {
	if page < 1 || page > TotalPages(len(sorted), size) {
		return nil, ErrPageOutOfRange
	}
	start := (page - 1) * size
	end := min(start+size, len(sorted))
	return sorted[start:end], nil
}

// QueryState 列表的检索条件与当前页。修改检索条件会把页码重置为 1。
type QueryState struct {
	SearchTerm string    `json:"searchTerm"`
	Source     string    `json:"source"`
	Sort       SortOrder `json:"sort"`
	Page       int       `json:"page"`
}

func NewQueryState() QueryState {
	return QueryState{Source: SourceAll, Sort: SortNewest, Page: 1}
}

// SetFilter 任何检索或排序变化都回到第 1 页
func (q *QueryState) SetFilter(term, source string, order SortOrder) {
	q.SearchTerm = term
	q.Source = source
	q.Sort = order
	q.Page = 1
}

// ChangePage 页码不在 [1, TotalPages] 内时拒绝，Page 保持不变
func (q *QueryState) ChangePage(page, filteredCount int) bool {
	if page < 1 || page > TotalPages(filteredCount, PageSize) {
		return false
	}
	q.Page = page
	return true
}

// Result 一次查询的展示数据
type Result struct {
	Items      []collector.Article `json:"items"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"totalPages"`
	Total      int                 `json:"total"`
}

// Filtered 对全量文章执行筛选 + 排序
func (q QueryState) Filtered(articles []collector.Article) []collector.Article {
	source := q.Source
	if source == "" {
		source = SourceAll
	}
	return Sort(Filter(articles, q.SearchTerm, source), q.Sort)
}

// Apply 筛选、排序并取当前页
func (q QueryState) Apply(articles []collector.Article) Result {
	return q.PageOf(q.Filtered(articles))
}

// PageOf 对已筛选排序的列表取当前页；无结果或页码越界时返回空页
func (q QueryState) PageOf(filtered []collector.Article) Result {
	res := Result{
		Items:      []collector.Article{},
		Page:       q.Page,
		TotalPages: TotalPages(len(filtered), PageSize),
		Total:      len(filtered),
	}
	if page, err := Paginate(filtered, q.Page, PageSize); err == nil {
		res.Items = page
	}
	return res
}
