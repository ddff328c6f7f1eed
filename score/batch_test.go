package score

import (
	"math"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
)

func TestBatch_ScoreItems(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := testProfile()
	w := core.DefaultWeights()

	fctx := &core.FeedContext{
		UserID:  1,
		Profile: p,
		Weights: w,
		Now:     now,
	}

	posts := []*core.Post{
		{ID: 1, TagIDs: []int64{10}, CreatedAt: now},
		{ID: 2, TagIDs: []int64{20}, CreatedAt: now.Add(-168 * time.Hour)},
		{ID: 3, TagIDs: nil, CreatedAt: now.Add(-500 * time.Hour)},
	}
	items := make([]*core.Item, 0, len(posts)+1)
	for _, post := range posts {
		items = append(items, core.NewItem(post))
	}
	items = append(items, nil) // batch path must tolerate holes

	got := NewBatch(fctx).ScoreItems(items)
	if len(got) != len(items) {
		t.Fatalf("ScoreItems() returned %d items, want %d", len(got), len(items))
	}

	// Batch scores must agree with the single-post function (unseen path).
	for i, post := range posts {
		want := Post(p, post, false, w, now)
		if math.Abs(got[i].Score-want) > 1e-9 {
			t.Errorf("item %d score = %v, want %v", post.ID, got[i].Score, want)
		}
	}
}

func TestNewBatch_NilProfile(t *testing.T) {
	now := time.Now()
	fctx := &core.FeedContext{Weights: core.DefaultWeights(), Now: now}

	items := []*core.Item{
		core.NewItem(&core.Post{ID: 1, TagIDs: []int64{10}, CreatedAt: now}),
	}
	NewBatch(fctx).ScoreItems(items)

	// No profile means no interest matches; only the freshness term remains.
	want := Freshness(0) * fctx.Weights.Freshness * 100
	if math.Abs(items[0].Score-want) > 1e-9 {
		t.Errorf("score = %v, want %v", items[0].Score, want)
	}
}
