package dsl

import (
	"testing"
)

func TestCompileAndEval(t *testing.T) {
	vars := map[string]any{
		"post": map[string]any{
			"id":        int64(7),
			"age_hours": 48.5,
			"tag_count": int64(2),
			"tag_ids":   []int64{10, 20},
		},
		"item": map[string]any{"score": 87.5},
		"user": map[string]any{"id": int64(42)},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"post.tag_count == 2", true},
		{"post.tag_count == 0", false},
		{"post.age_hours > 24.0", true},
		{"10 in post.tag_ids", true},
		{"99 in post.tag_ids", false},
		{"item.score < 50.0", false},
		{"user.id == 42 && post.id == 7", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			rule, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile(%q) error = %v", tt.expr, err)
			}
			got, err := rule.Eval(vars)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCompile_SyntaxError(t *testing.T) {
	if _, err := Compile("post.tag_count >"); err == nil {
		t.Error("Compile() succeeded on broken expression, want error")
	}
}

func TestEval_NonBoolResult(t *testing.T) {
	rule, err := Compile("post.tag_count + 1")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	vars := map[string]any{"post": map[string]any{"tag_count": int64(1)}}
	if _, err := rule.Eval(vars); err == nil {
		t.Error("Eval() succeeded on non-bool expression, want error")
	}
}

func TestRule_Expr(t *testing.T) {
	rule, err := Compile("post.tag_count == 0")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if rule.Expr() != "post.tag_count == 0" {
		t.Errorf("Expr() = %q, want original expression", rule.Expr())
	}
}
