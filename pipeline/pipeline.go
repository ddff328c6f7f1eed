package pipeline

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// Pipeline 是 feedkit 的核心抽象：把信息流逻辑拆成可组合的 Node 链
// （Recall → Filter → Rank → ReRank）。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	fctx *core.FeedContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, fctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
