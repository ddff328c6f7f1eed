package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/feedkit/core"
)

type failingFilter struct{}

func (f *failingFilter) Name() string { return "filter.failing" }

func (f *failingFilter) ShouldFilter(_ context.Context, _ *core.FeedContext, _ *core.Item) (bool, error) {
	return false, errors.New("rule evaluation failed")
}

func TestNode_FilterErrorKeepsItemWithLabel(t *testing.T) {
	items := []*core.Item{core.NewItem(&core.Post{ID: 1})}
	n := &Node{Filters: []Filter{&failingFilter{}}}

	out, err := n.Process(context.Background(), &core.FeedContext{}, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 || out[0].ID() != 1 {
		t.Fatalf("Process() kept %d items, want the item retained on filter error", len(out))
	}

	lbl, ok := out[0].Labels["filter_error"]
	if !ok {
		t.Fatalf("labels = %+v, want filter_error recorded", out[0].Labels)
	}
	if lbl.Source != "filter.failing" || lbl.Value != "rule evaluation failed" {
		t.Errorf("filter_error label = %+v, want source filter.failing with the error message", lbl)
	}
}

func TestNode_FilterErrorDoesNotMaskLaterFilters(t *testing.T) {
	fctx := &core.FeedContext{SeenIDs: core.NewIDSet(1)}
	items := []*core.Item{core.NewItem(&core.Post{ID: 1})}
	n := &Node{Filters: []Filter{&failingFilter{}, &SeenFilter{}}}

	out, err := n.Process(context.Background(), fctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("Process() kept %d items, want seen item dropped despite earlier filter error", len(out))
	}
	if lbl, ok := items[0].Labels["filter_error"]; !ok || lbl.Source != "filter.failing" {
		t.Errorf("labels = %+v, want filter_error from filter.failing", items[0].Labels)
	}
	if lbl, ok := items[0].Labels["filtered"]; !ok || lbl.Source != "filter.seen" {
		t.Errorf("labels = %+v, want filtered by filter.seen", items[0].Labels)
	}
}
