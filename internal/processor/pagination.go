package processor

import "unicode/utf8"

// SummaryLength 卡片摘要截断长度（按字符）
const SummaryLength = 120

const NoDescription = "No description available"

// PageLink 分页控件的一个元素；Ellipsis 为 true 时表示省略号
type PageLink struct {
	Page     int  `json:"page,omitempty"`
	Current  bool `json:"current,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// PageWindow 第一页、最后一页、当前页前后各 2 页，距当前页 3 处放省略号；总页数 ≤ 1 时不需要分页控件
func PageWindow(current, total int) []PageLink {
	if total <= 1 {
		return nil
	}
	links := make([]PageLink, 0, 9)
	for i := 1; i <= total; i++ {
		switch {
		case i == 1 || i == total || (i >= current-2 && i <= current+2):
			links = append(links, PageLink{Page: i, Current: i == current})
		case i == current-3 || i == current+3:
			links = append(links, PageLink{Ellipsis: true})
		}
	}
	return links
}

// Truncate 超过 limit 个字符时截断并追加 "..."
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}

// Summary 卡片展示用的描述：为空时给固定文案
func Summary(description string) string {
	if description == "" {
		return NoDescription
	}
	return Truncate(description, SummaryLength)
}
