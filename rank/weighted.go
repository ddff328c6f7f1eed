package rank

import (
	"context"
	"sort"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
	"github.com/rushteam/feedkit/score"
)

// WeightedNode 是线性加权排序 Node：用 fctx 里解析好的兴趣集合与系数
// 批量打分，然后按分数降序排序。
// - 写入 labels：rank_model
// - 更新 item.Score
// - 同分时按 Post ID 降序（新 Post 在前），保证排序结果确定
type WeightedNode struct{}

func (n *WeightedNode) Name() string        { return "rank.weighted" }
func (n *WeightedNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *WeightedNode) Process(
	_ context.Context,
	fctx *core.FeedContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if fctx == nil || len(items) == 0 {
		return items, nil
	}

	batch := score.NewBatch(fctx)
	batch.ScoreItems(items)

	for _, it := range items {
		if it == nil {
			continue
		}
		it.PutLabel("rank_model", utils.Label{Value: n.Name(), Source: "rank"})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID() > items[j].ID()
	})
	return items, nil
}
