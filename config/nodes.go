package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/feedkit/filter"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/pkg/conv"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/rerank"
)

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
// 各组件调用 Register(typeName, builder) 即可被配置驱动。
type NodeBuilder = pipeline.NodeBuilder

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回基于当前注册表构建的 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// BuildExtraNodes 根据 FeedConfig.Nodes 构建自定义 Node 列表；
// 有未注册类型时返回包含已支持列表的错误。
func BuildExtraNodes(nodes []pipeline.NodeConfig) ([]pipeline.Node, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	factory := DefaultFactory()
	out := make([]pipeline.Node, 0, len(nodes))
	for _, nc := range nodes {
		node, err := factory.Build(nc.Type, nc.Config)
		if err != nil {
			return nil, fmt.Errorf("build node %s (supported: %v): %w", nc.Type, SupportedTypes(), err)
		}
		out = append(out, node)
	}
	return out, nil
}

// BuildRuleFilters 编译 FeedConfig.Rules 中的 CEL 规则。
func BuildRuleFilters(rules []string) ([]filter.Filter, error) {
	out := make([]filter.Filter, 0, len(rules))
	for _, expr := range rules {
		f, err := filter.NewRuleFilter(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func init() {
	Register("filter.seen", func(_ map[string]any) (pipeline.Node, error) {
		return &filter.Node{Filters: []filter.Filter{&filter.SeenFilter{}}}, nil
	})

	Register("filter.rule", func(config map[string]any) (pipeline.Node, error) {
		exprs := conv.SliceAnyToString(config["rules"])
		if len(exprs) == 0 {
			return nil, fmt.Errorf("filter.rule: rules not found")
		}
		filters, err := BuildRuleFilters(exprs)
		if err != nil {
			return nil, err
		}
		return &filter.Node{Filters: filters}, nil
	})

	Register("rank.weighted", func(_ map[string]any) (pipeline.Node, error) {
		return &rank.WeightedNode{}, nil
	})

	Register("rerank.topn", func(config map[string]any) (pipeline.Node, error) {
		n := conv.ConfigGetInt64(config, "n", 0)
		return &rerank.TopNNode{N: int(n)}, nil
	})
}
