package collector

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func normalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// cleanText 去掉 HTML 标签（RSS 描述常带 <p>/<img>），合并空白并规范为合法 UTF-8
func cleanText(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// buildArticle 统一套用兜底值：标题 Untitled、占位图、链接 #、发布时间取当前时间
func buildArticle(src Source, title, description, image, link string, published time.Time) Article {
	if published.IsZero() {
		published = nowFunc()
	}
	return Article{
		Title:       orDefault(cleanText(title), UntitledTitle),
		Description: cleanText(description),
		ImageURL:    orDefault(strings.TrimSpace(image), PlaceholderImage),
		URL:         orDefault(strings.TrimSpace(link), MissingURL),
		Source:      src,
		PublishedAt: published,
	}
}

// parseTimeLayouts 依次尝试各 layout，全部失败返回零值
func parseTimeLayouts(v string, layouts ...string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
