package rerank

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在排序后截取前 N 个 Item。
// 在排序（Rank）节点之后使用，保证返回条数不超过页大小
// （自定义过滤/召回 Node 组合后仍可能多于一页时兜底）。
type TopNNode struct {
	// N 要保留的 Item 数量（Top N）
	// 如果 N <= 0，则返回所有 Item（不截断）
	// 如果 N > len(items)，则返回所有 Item
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.FeedContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 {
		return items, nil
	}

	if len(items) <= n.N {
		return items, nil
	}

	return items[:n.N], nil
}
