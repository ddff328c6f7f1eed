// Package feedkit 是一个个性化信息流引擎（Feed Kit）。
//
// 设计要点：
// - Pipeline-first: 取数与排序逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - 确定性打分: 兴趣匹配 + 新鲜度衰减 + 已读惩罚，同一输入永远得到同一分数
// - 结果缓存: 分页结果按 (user, page, page_size) 缓存，TTL 过期或写入失效
package feedkit

import "github.com/rushteam/feedkit/pipeline"

// 轻量 facade：便于用户直接 import "feedkit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
