package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func TestTopNNode_Process(t *testing.T) {
	items := func(n int) []*core.Item {
		out := make([]*core.Item, n)
		for i := range out {
			out[i] = core.NewItem(&core.Post{ID: int64(i + 1)})
		}
		return out
	}

	tests := []struct {
		name    string
		n       int
		in      []*core.Item
		wantLen int
	}{
		{"truncates to n", 3, items(10), 3},
		{"fewer items than n", 5, items(2), 2},
		{"exactly n", 4, items(4), 4},
		{"zero n keeps all", 0, items(6), 6},
		{"negative n keeps all", -1, items(6), 6},
		{"empty input", 3, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&TopNNode{N: tt.n}).Process(context.Background(), nil, tt.in)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(out) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(out), tt.wantLen)
			}
			// Truncation keeps the head of the slice.
			for i, it := range out {
				if it.ID() != tt.in[i].ID() {
					t.Errorf("out[%d].ID = %d, want %d", i, it.ID(), tt.in[i].ID())
				}
			}
		})
	}
}
