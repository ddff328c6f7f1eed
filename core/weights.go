package core

import "time"

// Weights 是打分系数配置：四个非负浮点系数加激活标记。
// 全局不变式：任意时刻至多一个配置处于激活状态，由存储层的事务性
// Activate 保证（激活某个配置时原子地取消其它配置的激活）。
type Weights struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// PrimaryTag 主兴趣命中权重（按命中数累加，不封顶）
	PrimaryTag float64 `json:"primary_tag_weight"`
	// SecondaryTag 次兴趣命中权重
	SecondaryTag float64 `json:"secondary_tag_weight"`
	// Freshness 新鲜度项权重
	Freshness float64 `json:"freshness_weight"`
	// SeenPenalty 已读惩罚乘数，(0,1) 内的值压制但不归零
	SeenPenalty float64 `json:"seen_penalty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultWeights 是无激活配置时的兜底系数 {1.0, 0.5, 0.3, 0.1}。
func DefaultWeights() Weights {
	return Weights{
		Name:         "default",
		PrimaryTag:   1.0,
		SecondaryTag: 0.5,
		Freshness:    0.3,
		SeenPenalty:  0.1,
	}
}
