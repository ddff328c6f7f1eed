package core

import (
	"time"

	"github.com/rushteam/feedkit/pkg/utils"
)

// Interest 是兴趣标签：既可以挂在用户画像上（偏好），也可以挂在 Post 上（主题）。
// 除重命名外创建后不可变。
type Interest struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Post 是信息流中的内容单元。对打分链路而言创建后只读：
// CreatedAt 与 TagIDs 是打分的输入，不在链路内修改。
type Post struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url,omitempty"`
	TagIDs    []int64   `json:"tag_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// Item 是信息流链路中的统一承载结构：Post、分数、标签。
// Labels 用于解释与观测；Score 用于排序决策。
type Item struct {
	Post   *Post                  `json:"post"`
	Score  float64                `json:"score"`
	Labels map[string]utils.Label `json:"labels,omitempty"`
}

func NewItem(post *Post) *Item {
	return &Item{
		Post:   post,
		Labels: make(map[string]utils.Label),
	}
}

// ID 返回底层 Post 的 ID；Post 为空时返回 0。
func (it *Item) ID() int64 {
	if it.Post == nil {
		return 0
	}
	return it.Post.ID
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}
