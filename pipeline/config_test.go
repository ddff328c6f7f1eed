package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/feedkit/core"
)

type truncNode struct {
	n int
}

func (t *truncNode) Name() string { return "test.trunc" }
func (t *truncNode) Kind() Kind   { return KindReRank }
func (t *truncNode) Process(_ context.Context, _ *core.FeedContext, items []*core.Item) ([]*core.Item, error) {
	if len(items) > t.n {
		return items[:t.n], nil
	}
	return items, nil
}

func testFactory() *NodeFactory {
	f := NewNodeFactory()
	f.Register("test.trunc", func(config map[string]any) (Node, error) {
		n := 0
		switch v := config["n"].(type) {
		case int:
			n = v
		case float64:
			n = int(v)
		}
		return &truncNode{n: n}, nil
	})
	return f
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFromYAML_BuildNodes(t *testing.T) {
	path := writeFile(t, "pipeline.yaml", `
pipeline:
  name: test-feed
  nodes:
    - type: test.trunc
      config:
        n: 2
`)
	cfg, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML() error = %v", err)
	}
	if cfg.Pipeline.Name != "test-feed" {
		t.Errorf("name = %q, want test-feed", cfg.Pipeline.Name)
	}

	nodes, err := cfg.BuildNodes(testFactory())
	if err != nil {
		t.Fatalf("BuildNodes() error = %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}

	// The built chain is runnable.
	items := []*core.Item{
		core.NewItem(&core.Post{ID: 1}),
		core.NewItem(&core.Post{ID: 2}),
		core.NewItem(&core.Post{ID: 3}),
	}
	out, err := (&Pipeline{Nodes: nodes}).Run(context.Background(), &core.FeedContext{}, items)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out) != 2 {
		t.Errorf("len(out) = %d, want 2 (configured truncation)", len(out))
	}
}

func TestLoadFromJSON_BuildNodes(t *testing.T) {
	path := writeFile(t, "pipeline.json",
		`{"pipeline": {"name": "test-feed", "nodes": [{"type": "test.trunc", "config": {"n": 1}}]}}`)

	cfg, err := LoadFromJSON(path)
	if err != nil {
		t.Fatalf("LoadFromJSON() error = %v", err)
	}
	nodes, err := cfg.BuildNodes(testFactory())
	if err != nil {
		t.Fatalf("BuildNodes() error = %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("len(nodes) = %d, want 1", len(nodes))
	}
	if tn, ok := nodes[0].(*truncNode); !ok || tn.n != 1 {
		t.Errorf("nodes[0] = %#v, want truncNode{n: 1}", nodes[0])
	}
}

func TestBuildNodes_UnknownType(t *testing.T) {
	cfg := &Config{}
	cfg.Pipeline.Nodes = []NodeConfig{{Type: "does.not.exist"}}
	if _, err := cfg.BuildNodes(testFactory()); err == nil {
		t.Error("BuildNodes() with unregistered type, want error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := LoadFromYAML(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromYAML() on missing file, want error")
	}
	if _, err := LoadFromJSON(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("LoadFromJSON() on missing file, want error")
	}
}
