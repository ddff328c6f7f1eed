package filter

import (
	"context"

	"github.com/rushteam/feedkit/core"
)

// SeenFilter 是已读过滤器：剔除用户已经看过的 Post。
// 已读集合由 feed.Service 在进入 Pipeline 前一次性取好（fctx.SeenIDs），
// 过滤本身不回源查询。
//
// 正常链路里候选窗口取数时已排除了已读 Post，此过滤器是对
// 自定义召回源/外部注入候选的兜底，不产生额外存储往返。
type SeenFilter struct{}

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	_ context.Context,
	fctx *core.FeedContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Post == nil {
		return true, nil
	}
	if fctx == nil || fctx.SeenIDs == nil {
		return false, nil
	}
	return fctx.SeenIDs.Has(item.Post.ID), nil
}
