package recall

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/utils"
)

// Window 是未读候选窗口召回源：从 Repository 取按 created_at 降序的
// [Offset, Offset+Limit) 窗口，已读 Post 在取数时整体排除。
//
// 注意语义：窗口先按时间切、之后才按分数排——时间窗口之外的高分 Post
// 不会提前出现在更早的页上（没有全局 top-K 语义）。
// Window 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Window struct {
	Repo   core.Repository
	Offset int
	Limit  int
}

func (r *Window) Name() string        { return "recall.window" }
func (r *Window) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Window) Process(
	ctx context.Context,
	fctx *core.FeedContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, fctx)
}

// Recall 实现 Source 接口。取数的同时把打分前的未读总数回填到
// fctx.TotalUnseen，分页元信息以它为准（而不是排序后的条数）。
func (r *Window) Recall(
	ctx context.Context,
	fctx *core.FeedContext,
) ([]*core.Item, error) {
	if r.Repo == nil || fctx == nil {
		return nil, nil
	}

	posts, total, err := r.Repo.FetchUnseenWindow(ctx, fctx.UserID, fctx.SeenIDs, r.Offset, r.Limit)
	if err != nil {
		return nil, err
	}
	fctx.TotalUnseen = total

	out := make([]*core.Item, 0, len(posts))
	for _, p := range posts {
		it := core.NewItem(p)
		it.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		out = append(out, it)
	}
	return out, nil
}
