package score

import (
	"time"

	"github.com/rushteam/feedkit/core"
)

// Batch 对一批候选 Post 打分：兴趣集合只物化一次，每条 Post 的标签集合
// 只遍历一次，整体复杂度 O(候选标签总数)，而不是 O(候选数 × 全部标签数)。
//
// 已读检查不在批量路径内：候选窗口在上游取数时已整体排除已读 Post，
// 已读惩罚分支只服务于单条展示打分（Post 函数的 seen 参数）。
type Batch struct {
	Primary   core.IDSet
	Secondary core.IDSet
	Weights   core.Weights

	// Now 统一的打分时刻；同一批候选共享同一个新鲜度基准
	Now time.Time
}

// NewBatch 由已解析的请求上下文构建批量打分器。
func NewBatch(fctx *core.FeedContext) *Batch {
	b := &Batch{Weights: fctx.Weights, Now: fctx.Now}
	if fctx.Profile != nil {
		b.Primary = fctx.Profile.Primary
		b.Secondary = fctx.Profile.Secondary
	}
	return b
}

// ScoreItems 就地写入每个 Item 的 Score，返回入参切片。
func (b *Batch) ScoreItems(items []*core.Item) []*core.Item {
	for _, it := range items {
		if it == nil || it.Post == nil {
			continue
		}
		it.Score = b.scorePost(it.Post)
	}
	return items
}

func (b *Batch) scorePost(post *core.Post) float64 {
	base := InterestTerm(b.Primary, b.Secondary, post.TagIDs, b.Weights)
	base += Freshness(b.Now.Sub(post.CreatedAt)) * b.Weights.Freshness
	return clamp(base*100, 0, 100)
}
