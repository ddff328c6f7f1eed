// Package dsl 提供基于 CEL (Common Expression Language) 的规则求值器，
// 用于配置驱动的信息流过滤规则（filter.RuleFilter）。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

// getCELEnv 获取或创建 CEL 环境，定义规则可见的变量。
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("post", cel.DynType),
			cel.Variable("item", cel.DynType),
			cel.Variable("user", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Rule 是一条编译好的布尔规则，编译一次、多次求值，线程安全。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：post.age_hours > 720.0 / item.score < 5.0
//   - 逻辑：post.tag_count == 0 && item.score < 1.0
//   - 包含：42 in post.tag_ids
//
// 示例：
//   - `post.tag_count == 0` → 过滤无标签的 Post
//   - `post.age_hours > 2160.0` → 过滤三个月以前的 Post
type Rule struct {
	expr string
	prg  cel.Program
}

// Compile 编译一条规则表达式；语法错误在此处暴露，而不是求值时。
func Compile(expr string) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: init env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("dsl: compile %q: %w", expr, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program %q: %w", expr, err)
	}
	return &Rule{expr: expr, prg: prg}, nil
}

// Expr 返回规则的原始表达式，用于日志/解释。
func (r *Rule) Expr() string { return r.expr }

// Eval 对给定变量求值，返回布尔结果；表达式结果不是 bool 时报错。
func (r *Rule) Eval(vars map[string]any) (bool, error) {
	out, _, err := r.prg.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("dsl: eval %q: %w", r.expr, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: expression %q did not evaluate to bool", r.expr)
	}
	return b, nil
}
