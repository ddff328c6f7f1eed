package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rushteam/feedkit/core"
)

// Postgres 是 PostgreSQL 实现的 Repository（jackc/pgx 连接池）。
// 与 SQLite 实现语义一致，多实例部署时使用。
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres 建立连接池并初始化表结构。
func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	s := &Postgres{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Postgres) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS interests (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			text TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS post_tags (
			post_id BIGINT NOT NULL REFERENCES posts(id),
			interest_id BIGINT NOT NULL REFERENCES interests(id),
			PRIMARY KEY (post_id, interest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id BIGINT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS user_primary_interests (
			user_id BIGINT NOT NULL,
			interest_id BIGINT NOT NULL REFERENCES interests(id),
			PRIMARY KEY (user_id, interest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_secondary_interests (
			user_id BIGINT NOT NULL,
			interest_id BIGINT NOT NULL REFERENCES interests(id),
			PRIMARY KEY (user_id, interest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS seen_posts (
			user_id BIGINT NOT NULL,
			post_id BIGINT NOT NULL REFERENCES posts(id),
			seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, post_id)
		)`,
		`CREATE TABLE IF NOT EXISTS relevance_weights (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			primary_tag_weight DOUBLE PRECISION NOT NULL,
			secondary_tag_weight DOUBLE PRECISION NOT NULL,
			freshness_weight DOUBLE PRECISION NOT NULL,
			seen_penalty DOUBLE PRECISION NOT NULL,
			active BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_seen_posts_user ON seen_posts (user_id)`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) FetchUnseenWindow(ctx context.Context, userID int64, seen core.IDSet, offset, limit int) ([]*core.Post, int, error) {
	seenIDs := seen.Slice()
	if seenIDs == nil {
		seenIDs = []int64{}
	}

	var total int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM posts WHERE NOT (id = ANY($1))", seenIDs).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count unseen posts: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, text, image_url, created_at FROM posts
		 WHERE NOT (id = ANY($1))
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		seenIDs, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch unseen window: %w", err)
	}
	defer rows.Close()

	posts := make([]*core.Post, 0, limit)
	for rows.Next() {
		var p core.Post
		if err := rows.Scan(&p.ID, &p.Text, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.attachTags(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *Postgres) FetchUserInterests(ctx context.Context, userID int64) (*core.UserProfile, error) {
	var exists int
	err := s.pool.QueryRow(ctx, "SELECT 1 FROM user_profiles WHERE user_id = $1", userID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	profile := core.NewUserProfile(userID)
	primary, err := s.interestIDs(ctx, "user_primary_interests", userID)
	if err != nil {
		return nil, err
	}
	secondary, err := s.interestIDs(ctx, "user_secondary_interests", userID)
	if err != nil {
		return nil, err
	}
	profile.Primary = primary
	profile.Secondary = secondary
	return profile, nil
}

func (s *Postgres) interestIDs(ctx context.Context, table string, userID int64) (core.IDSet, error) {
	rows, err := s.pool.Query(ctx, "SELECT interest_id FROM "+table+" WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	defer rows.Close()

	out := make(core.IDSet)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out.Add(id)
	}
	return out, rows.Err()
}

func (s *Postgres) FetchSeenPostIDs(ctx context.Context, userID int64) (core.IDSet, error) {
	rows, err := s.pool.Query(ctx, "SELECT post_id FROM seen_posts WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("fetch seen posts: %w", err)
	}
	defer rows.Close()

	out := make(core.IDSet)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out.Add(id)
	}
	return out, rows.Err()
}

func (s *Postgres) RecordSeen(ctx context.Context, userID, postID int64) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO seen_posts (user_id, post_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, postID)
	if err != nil {
		return fmt.Errorf("record seen: %w", err)
	}
	return nil
}

func (s *Postgres) ActiveWeights(ctx context.Context) (*core.Weights, error) {
	var w core.Weights
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, primary_tag_weight, secondary_tag_weight, freshness_weight, seen_penalty, active, created_at
		 FROM relevance_weights WHERE active
		 ORDER BY created_at DESC, id DESC LIMIT 1`).
		Scan(&w.ID, &w.Name, &w.PrimaryTag, &w.SecondaryTag, &w.Freshness, &w.SeenPenalty, &w.Active, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrWeightsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch active weights: %w", err)
	}
	return &w, nil
}

func (s *Postgres) GetPost(ctx context.Context, postID int64) (*core.Post, error) {
	var p core.Post
	err := s.pool.QueryRow(ctx,
		"SELECT id, text, image_url, created_at FROM posts WHERE id = $1", postID).
		Scan(&p.ID, &p.Text, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch post: %w", err)
	}
	if err := s.attachTags(ctx, []*core.Post{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Postgres) ListInterests(ctx context.Context) ([]*core.Interest, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name FROM interests ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list interests: %w", err)
	}
	defer rows.Close()

	out := make([]*core.Interest, 0)
	for rows.Next() {
		var it core.Interest
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (s *Postgres) SaveWeights(ctx context.Context, w *core.Weights) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO relevance_weights
		 (name, primary_tag_weight, secondary_tag_weight, freshness_weight, seen_penalty, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		w.Name, w.PrimaryTag, w.SecondaryTag, w.Freshness, w.SeenPenalty, w.Active, w.CreatedAt).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	return nil
}

func (s *Postgres) ActivateWeights(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("activate weights: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "UPDATE relevance_weights SET active = false WHERE id <> $1", id); err != nil {
		return fmt.Errorf("deactivate weights: %w", err)
	}
	tag, err := tx.Exec(ctx, "UPDATE relevance_weights SET active = true WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("activate weights: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrWeightsNotFound
	}
	return tx.Commit(ctx)
}

func (s *Postgres) CreateInterest(ctx context.Context, name string) (*core.Interest, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		"INSERT INTO interests (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create interest: %w", err)
	}
	return &core.Interest{ID: id, Name: name}, nil
}

func (s *Postgres) CreatePost(ctx context.Context, text, imageURL string, tagIDs []int64, createdAt time.Time) (*core.Post, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		"INSERT INTO posts (text, image_url, created_at) VALUES ($1, $2, $3) RETURNING id",
		text, imageURL, createdAt).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	for _, tag := range tagIDs {
		if _, err := tx.Exec(ctx,
			"INSERT INTO post_tags (post_id, interest_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", id, tag); err != nil {
			return nil, fmt.Errorf("create post tags: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	return &core.Post{ID: id, Text: text, ImageURL: imageURL, TagIDs: tagIDs, CreatedAt: createdAt}, nil
}

func (s *Postgres) SaveUserInterests(ctx context.Context, userID int64, primary, secondary []int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save user interests: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		"INSERT INTO user_profiles (user_id) VALUES ($1) ON CONFLICT DO NOTHING", userID); err != nil {
		return fmt.Errorf("save user profile: %w", err)
	}

	for table, ids := range map[string][]int64{
		"user_primary_interests":   primary,
		"user_secondary_interests": secondary,
	} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE user_id = $1", userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		for _, id := range ids {
			if _, err := tx.Exec(ctx,
				"INSERT INTO "+table+" (user_id, interest_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				userID, id); err != nil {
				return fmt.Errorf("insert %s: %w", table, err)
			}
		}
	}
	return tx.Commit(ctx)
}

func (s *Postgres) attachTags(ctx context.Context, posts []*core.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[int64]*core.Post, len(posts))
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT post_id, interest_id FROM post_tags WHERE post_id = ANY($1) ORDER BY post_id, interest_id", ids)
	if err != nil {
		return fmt.Errorf("fetch post tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, interestID int64
		if err := rows.Scan(&postID, &interestID); err != nil {
			return err
		}
		if p, ok := byID[postID]; ok {
			p.TagIDs = append(p.TagIDs, interestID)
		}
	}
	return rows.Err()
}

var (
	_ core.Repository  = (*Postgres)(nil)
	_ core.WeightAdmin = (*Postgres)(nil)
	_ core.Seeder      = (*Postgres)(nil)
)
