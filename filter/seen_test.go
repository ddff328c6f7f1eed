package filter

import (
	"context"
	"testing"

	"github.com/rushteam/feedkit/core"
)

func TestSeenFilter_ShouldFilter(t *testing.T) {
	f := &SeenFilter{}
	fctx := &core.FeedContext{
		UserID:  1,
		SeenIDs: core.NewIDSet(5, 7),
	}

	tests := []struct {
		name string
		fctx *core.FeedContext
		item *core.Item
		want bool
	}{
		{"seen post filtered", fctx, core.NewItem(&core.Post{ID: 5}), true},
		{"unseen post kept", fctx, core.NewItem(&core.Post{ID: 6}), false},
		{"nil item filtered", fctx, nil, true},
		{"nil post filtered", fctx, &core.Item{}, true},
		{"nil seen set keeps everything", &core.FeedContext{}, core.NewItem(&core.Post{ID: 5}), false},
		{"nil fctx keeps everything", nil, core.NewItem(&core.Post{ID: 5}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ShouldFilter(context.Background(), tt.fctx, tt.item)
			if err != nil {
				t.Fatalf("ShouldFilter() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}
