// Package score 实现 (用户, Post) 相关性打分：线性加权的兴趣命中项、
// 指数衰减的新鲜度项、已读惩罚乘数，输出限定在 [0,100]。
// 纯函数实现，不触达存储。
package score

import (
	"math"
	"time"

	"github.com/rushteam/feedkit/core"
)

// DecayHours 是新鲜度指数衰减常数（小时）：e^(-ageHours/168)，168 小时 = 一周。
const DecayHours = 168.0

// Freshness 计算新鲜度因子 clamp(e^(-ageHours/168), 0, 1)。
// age 为负（时钟偏差把创建时间放到了未来）时按 0 龄处理，因子被 clamp 到 1。
func Freshness(age time.Duration) float64 {
	return clamp(math.Exp(-age.Hours()/DecayHours), 0, 1)
}

// InterestTerm 计算兴趣命中项：主命中数 × 主权重 + 次命中数 × 次权重。
// 按命中数累加、不封顶：命中三个主兴趣的 Post 得到单命中三倍的分。
// 无标签的 Post 贡献为 0。
func InterestTerm(primary, secondary core.IDSet, tagIDs []int64, w core.Weights) float64 {
	var primaryMatches, secondaryMatches int
	for _, tag := range tagIDs {
		if primary.Has(tag) {
			primaryMatches++
		}
		if secondary.Has(tag) {
			secondaryMatches++
		}
	}
	return float64(primaryMatches)*w.PrimaryTag + float64(secondaryMatches)*w.SecondaryTag
}

// Post 计算单条 Post 的最终相关性分：
//
//	base  = 兴趣命中项 + 新鲜度因子 × freshness 权重
//	seen  时 base 整体乘以已读惩罚乘数
//	final = clamp(base × 100, 0, 100)
//
// profile 为 nil 时恒为 0。系数不做校验（负权重可能让 base 越界，
// 最终 clamp 仍保证输出落在 [0,100]）。
func Post(profile *core.UserProfile, post *core.Post, seen bool, w core.Weights, now time.Time) float64 {
	if profile == nil || post == nil {
		return 0
	}

	base := InterestTerm(profile.Primary, profile.Secondary, post.TagIDs, w)
	base += Freshness(now.Sub(post.CreatedAt)) * w.Freshness

	if seen {
		base *= w.SeenPenalty
	}

	return clamp(base*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
