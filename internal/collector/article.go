package collector

import "time"

// Source 新闻来源标签，由各适配器写死，不从响应字段推断
type Source string

const (
	SourceCryptoCompare Source = "cryptocompare"
	SourceCoinDesk      Source = "coindesk"
	SourceCryptoPanic   Source = "cryptopanic"
)

// Sources 固定的合并顺序
var Sources = []Source{SourceCryptoCompare, SourceCoinDesk, SourceCryptoPanic}

const (
	PlaceholderImage = "https://via.placeholder.com/400x200?text=Crypto+News"
	UntitledTitle    = "Untitled"
	UnknownSource    = "Unknown"
	MissingURL       = "#"
)

func (s Source) Valid() bool {
	switch s {
	case SourceCryptoCompare, SourceCoinDesk, SourceCryptoPanic:
		return true
	}
	return false
}

func (s Source) String() string {
	if !s.Valid() {
		return UnknownSource
	}
	return string(s)
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSource 大小写不敏感
func ParseSource(v string) (Source, bool) {
	s := Source(normalizeKey(v))
	return s, s.Valid()
}

// Article 三个来源归一化后的统一结构，每轮采集整体替换
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	URL         string    `json:"url"`
	Source      Source    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}
