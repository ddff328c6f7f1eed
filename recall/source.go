package recall

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// Source 表示一个可复用的候选来源。信息流当前只有一个来源
// （按时间降序的未读窗口），保持接口是为了后续扩展热门/关注等来源。
type Source interface {
	Name() string
	Recall(ctx context.Context, fctx *core.FeedContext) ([]*core.Item, error)
}
