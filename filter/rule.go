package filter

import (
	"context"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/pkg/dsl"
)

// RuleFilter 是 CEL 表达式过滤器：表达式返回 true 的 Item 被过滤。
// 规则在构造时编译一次，之后多次求值。
//
// 规则可见的变量：
//   - post: {id, age_hours, tag_count, tag_ids}
//   - item: {score}
//   - user: {id}
//
// 示例：
//   - `post.tag_count == 0` → 过滤无标签的 Post
//   - `post.age_hours > 2160.0` → 过滤三个月以前的 Post
type RuleFilter struct {
	rule *dsl.Rule
}

// NewRuleFilter 编译表达式并构建过滤器；语法错误在此处暴露。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	rule, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &RuleFilter{rule: rule}, nil
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	fctx *core.FeedContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Post == nil {
		return true, nil
	}

	post := item.Post
	tagIDs := make([]int64, len(post.TagIDs))
	copy(tagIDs, post.TagIDs)

	vars := map[string]any{
		"post": map[string]any{
			"id":        post.ID,
			"age_hours": ageHours(fctx, post),
			"tag_count": int64(len(post.TagIDs)),
			"tag_ids":   tagIDs,
		},
		"item": map[string]any{
			"score": item.Score,
		},
		"user": map[string]any{
			"id": userID(fctx),
		},
	}

	return f.rule.Eval(vars)
}

func ageHours(fctx *core.FeedContext, post *core.Post) float64 {
	if fctx == nil || fctx.Now.IsZero() {
		return 0
	}
	return fctx.Now.Sub(post.CreatedAt).Hours()
}

func userID(fctx *core.FeedContext) int64 {
	if fctx == nil {
		return 0
	}
	return fctx.UserID
}
