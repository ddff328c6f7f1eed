package storage

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/feedkit/core"
)

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_FetchUnseenWindow(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	tag, err := s.CreateInterest(ctx, "music")
	if err != nil {
		t.Fatalf("CreateInterest() error = %v", err)
	}

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 5; i++ {
		p, err := s.CreatePost(ctx, "post", "", []int64{tag.ID}, base.Add(-time.Duration(i)*time.Hour))
		if err != nil {
			t.Fatalf("CreatePost() error = %v", err)
		}
		ids = append(ids, p.ID)
	}

	t.Run("ordered newest first with total", func(t *testing.T) {
		posts, total, err := s.FetchUnseenWindow(ctx, 1, core.NewIDSet(), 0, 10)
		if err != nil {
			t.Fatalf("FetchUnseenWindow() error = %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
		if len(posts) != 5 {
			t.Fatalf("len(posts) = %d, want 5", len(posts))
		}
		for i := 1; i < len(posts); i++ {
			if posts[i].CreatedAt.After(posts[i-1].CreatedAt) {
				t.Errorf("posts not ordered newest first at index %d", i)
			}
		}
		// First post is the newest one created.
		if posts[0].ID != ids[0] {
			t.Errorf("posts[0].ID = %d, want %d", posts[0].ID, ids[0])
		}
		if len(posts[0].TagIDs) != 1 || posts[0].TagIDs[0] != tag.ID {
			t.Errorf("posts[0].TagIDs = %v, want [%d]", posts[0].TagIDs, tag.ID)
		}
	})

	t.Run("seen posts excluded from window and total", func(t *testing.T) {
		seen := core.NewIDSet(ids[0], ids[2])
		posts, total, err := s.FetchUnseenWindow(ctx, 1, seen, 0, 10)
		if err != nil {
			t.Fatalf("FetchUnseenWindow() error = %v", err)
		}
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		for _, p := range posts {
			if seen.Has(p.ID) {
				t.Errorf("seen post %d returned", p.ID)
			}
		}
	})

	t.Run("offset and limit slice the window", func(t *testing.T) {
		posts, total, err := s.FetchUnseenWindow(ctx, 1, core.NewIDSet(), 2, 2)
		if err != nil {
			t.Fatalf("FetchUnseenWindow() error = %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
		if len(posts) != 2 {
			t.Fatalf("len(posts) = %d, want 2", len(posts))
		}
		if posts[0].ID != ids[2] || posts[1].ID != ids[3] {
			t.Errorf("window = [%d, %d], want [%d, %d]", posts[0].ID, posts[1].ID, ids[2], ids[3])
		}
	})

	t.Run("offset past the end", func(t *testing.T) {
		posts, total, err := s.FetchUnseenWindow(ctx, 1, core.NewIDSet(), 100, 10)
		if err != nil {
			t.Fatalf("FetchUnseenWindow() error = %v", err)
		}
		if total != 5 || len(posts) != 0 {
			t.Errorf("got (%d posts, total %d), want (0, 5)", len(posts), total)
		}
	})
}

func TestSQLite_FetchUnseenWindow_SameTimestampTiebreak(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		p, err := s.CreatePost(ctx, "post", "", nil, at)
		if err != nil {
			t.Fatalf("CreatePost() error = %v", err)
		}
		ids = append(ids, p.ID)
	}

	posts, _, err := s.FetchUnseenWindow(ctx, 1, core.NewIDSet(), 0, 10)
	if err != nil {
		t.Fatalf("FetchUnseenWindow() error = %v", err)
	}
	// Equal created_at falls back to id descending.
	want := []int64{ids[2], ids[1], ids[0]}
	for i, p := range posts {
		if p.ID != want[i] {
			t.Errorf("posts[%d].ID = %d, want %d", i, p.ID, want[i])
		}
	}
}

func TestSQLite_UserInterests(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	if _, err := s.FetchUserInterests(ctx, 1); !core.IsNotFound(err) {
		t.Errorf("FetchUserInterests() error = %v, want not-found", err)
	}

	music, _ := s.CreateInterest(ctx, "music")
	travel, _ := s.CreateInterest(ctx, "travel")
	food, _ := s.CreateInterest(ctx, "food")

	if err := s.SaveUserInterests(ctx, 1, []int64{music.ID, travel.ID}, []int64{food.ID}); err != nil {
		t.Fatalf("SaveUserInterests() error = %v", err)
	}

	p, err := s.FetchUserInterests(ctx, 1)
	if err != nil {
		t.Fatalf("FetchUserInterests() error = %v", err)
	}
	if !p.Primary.Has(music.ID) || !p.Primary.Has(travel.ID) || p.Primary.Len() != 2 {
		t.Errorf("primary = %v, want {%d, %d}", p.Primary.Slice(), music.ID, travel.ID)
	}
	if !p.Secondary.Has(food.ID) || p.Secondary.Len() != 1 {
		t.Errorf("secondary = %v, want {%d}", p.Secondary.Slice(), food.ID)
	}

	// Saving again replaces the whole set.
	if err := s.SaveUserInterests(ctx, 1, []int64{food.ID}, nil); err != nil {
		t.Fatalf("SaveUserInterests() error = %v", err)
	}
	p, err = s.FetchUserInterests(ctx, 1)
	if err != nil {
		t.Fatalf("FetchUserInterests() error = %v", err)
	}
	if p.Primary.Len() != 1 || !p.Primary.Has(food.ID) {
		t.Errorf("primary after overwrite = %v, want {%d}", p.Primary.Slice(), food.ID)
	}
	if p.Secondary.Len() != 0 {
		t.Errorf("secondary after overwrite = %v, want empty", p.Secondary.Slice())
	}
}

func TestSQLite_RecordSeenIdempotent(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	p, err := s.CreatePost(ctx, "post", "", nil, time.Now())
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.RecordSeen(ctx, 1, p.ID); err != nil {
			t.Fatalf("RecordSeen() attempt %d error = %v", i, err)
		}
	}

	seen, err := s.FetchSeenPostIDs(ctx, 1)
	if err != nil {
		t.Fatalf("FetchSeenPostIDs() error = %v", err)
	}
	if seen.Len() != 1 || !seen.Has(p.ID) {
		t.Errorf("seen = %v, want {%d}", seen.Slice(), p.ID)
	}
}

func TestSQLite_Weights(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	if _, err := s.ActiveWeights(ctx); !core.IsNotFound(err) {
		t.Errorf("ActiveWeights() error = %v, want not-found", err)
	}

	a := core.DefaultWeights()
	a.Name = "a"
	if err := s.SaveWeights(ctx, &a); err != nil {
		t.Fatalf("SaveWeights() error = %v", err)
	}
	if a.ID == 0 {
		t.Fatal("SaveWeights() did not backfill ID")
	}

	b := core.Weights{Name: "b", PrimaryTag: 2, SecondaryTag: 1, Freshness: 0.5, SeenPenalty: 0.2}
	if err := s.SaveWeights(ctx, &b); err != nil {
		t.Fatalf("SaveWeights() error = %v", err)
	}

	// Saving alone does not activate.
	if _, err := s.ActiveWeights(ctx); !core.IsNotFound(err) {
		t.Errorf("ActiveWeights() error = %v, want not-found before activation", err)
	}

	if err := s.ActivateWeights(ctx, a.ID); err != nil {
		t.Fatalf("ActivateWeights() error = %v", err)
	}
	got, err := s.ActiveWeights(ctx)
	if err != nil {
		t.Fatalf("ActiveWeights() error = %v", err)
	}
	if got.ID != a.ID || got.PrimaryTag != 1.0 {
		t.Errorf("active = %+v, want config a", got)
	}

	// Activating b must atomically deactivate a.
	if err := s.ActivateWeights(ctx, b.ID); err != nil {
		t.Fatalf("ActivateWeights() error = %v", err)
	}
	got, err = s.ActiveWeights(ctx)
	if err != nil {
		t.Fatalf("ActiveWeights() error = %v", err)
	}
	if got.ID != b.ID {
		t.Errorf("active ID = %d, want %d", got.ID, b.ID)
	}

	var activeCount int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM relevance_weights WHERE active = 1").Scan(&activeCount); err != nil {
		t.Fatalf("count active: %v", err)
	}
	if activeCount != 1 {
		t.Errorf("active rows = %d, want exactly 1", activeCount)
	}

	// Activating a missing config fails and leaves state untouched.
	if err := s.ActivateWeights(ctx, 9999); !core.IsNotFound(err) {
		t.Errorf("ActivateWeights(9999) error = %v, want not-found", err)
	}
	got, err = s.ActiveWeights(ctx)
	if err != nil || got.ID != b.ID {
		t.Errorf("active after failed activation = (%+v, %v), want config b", got, err)
	}
}

func TestSQLite_GetPost(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	if _, err := s.GetPost(ctx, 1); !core.IsNotFound(err) {
		t.Errorf("GetPost() error = %v, want not-found", err)
	}

	tag, _ := s.CreateInterest(ctx, "music")
	created, err := s.CreatePost(ctx, "hello", "http://img", []int64{tag.ID}, time.Now())
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	got, err := s.GetPost(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if got.Text != "hello" || got.ImageURL != "http://img" {
		t.Errorf("post = %+v, want text/hello image/http://img", got)
	}
	if len(got.TagIDs) != 1 || got.TagIDs[0] != tag.ID {
		t.Errorf("TagIDs = %v, want [%d]", got.TagIDs, tag.ID)
	}
}

func TestSQLite_ListInterests(t *testing.T) {
	s := newTestDB(t)
	ctx := context.Background()

	for _, name := range []string{"travel", "art", "music"} {
		if _, err := s.CreateInterest(ctx, name); err != nil {
			t.Fatalf("CreateInterest(%q) error = %v", name, err)
		}
	}

	got, err := s.ListInterests(ctx)
	if err != nil {
		t.Fatalf("ListInterests() error = %v", err)
	}
	want := []string{"art", "music", "travel"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("interests[%d] = %q, want %q (sorted by name)", i, got[i].Name, name)
		}
	}
}
