package collector

import (
	"context"
	"time"
)

// Fetcher 抽象每一个新闻源：一次请求 + 按来源归一化
type Fetcher interface {
	Name() Source
	Fetch(ctx context.Context) ([]Article, error)
}

// singleAttempt 新闻源每轮只请求一次，不重试
const singleAttempt = 1

// nowFunc 缺失发布时间时的兜底，测试中可替换
var nowFunc = time.Now
