// Package storage 提供 core.Repository 的持久化实现：
// SQLite（单机/嵌入式）与 Postgres（生产）。
// 核心只消费查询结果，持久化格式（表结构）由本包定义。
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rushteam/feedkit/core"
)

// SQLite 是 SQLite 实现的 Repository（modernc.org/sqlite，纯 Go 驱动，无 CGO）。
type SQLite struct {
	db *sql.DB
}

// NewSQLite 打开数据库并初始化表结构。dsn 可以是文件路径或 ":memory:"。
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite 单写者模型：串行化连接，避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS interests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS post_tags (
			post_id INTEGER NOT NULL REFERENCES posts(id),
			interest_id INTEGER NOT NULL REFERENCES interests(id),
			PRIMARY KEY (post_id, interest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_profiles (
			user_id INTEGER PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_primary_interests (
			user_id INTEGER NOT NULL,
			interest_id INTEGER NOT NULL REFERENCES interests(id),
			PRIMARY KEY (user_id, interest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_secondary_interests (
			user_id INTEGER NOT NULL,
			interest_id INTEGER NOT NULL REFERENCES interests(id),
			PRIMARY KEY (user_id, interest_id)
		)`,
		`CREATE TABLE IF NOT EXISTS seen_posts (
			user_id INTEGER NOT NULL,
			post_id INTEGER NOT NULL REFERENCES posts(id),
			seen_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, post_id)
		)`,
		`CREATE TABLE IF NOT EXISTS relevance_weights (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			primary_tag_weight REAL NOT NULL,
			secondary_tag_weight REAL NOT NULL,
			freshness_weight REAL NOT NULL,
			seen_penalty REAL NOT NULL,
			active INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_seen_posts_user ON seen_posts(user_id)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// FetchUnseenWindow 取按 created_at 降序（同刻 id 降序）的未读窗口，
// 同时返回未读总数。窗口内 Post 的标签集合用一条 IN 查询整批取回，
// 避免每条 Post 一次往返。
func (s *SQLite) FetchUnseenWindow(ctx context.Context, userID int64, seen core.IDSet, offset, limit int) ([]*core.Post, int, error) {
	where := ""
	args := []any{}
	if seen.Len() > 0 {
		ids := seen.Slice()
		where = " WHERE id NOT IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, id)
		}
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count unseen posts: %w", err)
	}

	query := "SELECT id, text, image_url, created_at FROM posts" + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch unseen window: %w", err)
	}
	defer rows.Close()

	posts := make([]*core.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.attachTags(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *SQLite) FetchUserInterests(ctx context.Context, userID int64) (*core.UserProfile, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM user_profiles WHERE user_id = ?", userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
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

func (s *SQLite) interestIDs(ctx context.Context, table string, userID int64) (core.IDSet, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT interest_id FROM "+table+" WHERE user_id = ?", userID)
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

func (s *SQLite) FetchSeenPostIDs(ctx context.Context, userID int64) (core.IDSet, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT post_id FROM seen_posts WHERE user_id = ?", userID)
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

// RecordSeen 幂等：重复标记是 no-op，不报错。
func (s *SQLite) RecordSeen(ctx context.Context, userID, postID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO seen_posts (user_id, post_id, seen_at) VALUES (?, ?, ?)",
		userID, postID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("record seen: %w", err)
	}
	return nil
}

// ActiveWeights 取激活配置；瞬态的多条激活按 created_at、id 降序确定性取一条。
func (s *SQLite) ActiveWeights(ctx context.Context) (*core.Weights, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, primary_tag_weight, secondary_tag_weight, freshness_weight, seen_penalty, active, created_at
		 FROM relevance_weights WHERE active = 1
		 ORDER BY created_at DESC, id DESC LIMIT 1`)
	w, err := scanWeights(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrWeightsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch active weights: %w", err)
	}
	return w, nil
}

func (s *SQLite) GetPost(ctx context.Context, postID int64) (*core.Post, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, text, image_url, created_at FROM posts WHERE id = ?", postID)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch post: %w", err)
	}
	if err := s.attachTags(ctx, []*core.Post{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLite) ListInterests(ctx context.Context) ([]*core.Interest, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM interests ORDER BY name")
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

// SaveWeights 新建配置（不改变激活状态），回填 ID。
func (s *SQLite) SaveWeights(ctx context.Context, w *core.Weights) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO relevance_weights
		 (name, primary_tag_weight, secondary_tag_weight, freshness_weight, seen_penalty, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.Name, w.PrimaryTag, w.SecondaryTag, w.Freshness, w.SeenPenalty, boolToInt(w.Active), w.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save weights: %w", err)
	}
	w.ID = id
	return nil
}

// ActivateWeights 在单个事务内先取消其它配置的激活、再激活目标配置，
// 保证"至多一个激活"不变式不因并发激活被破坏。
func (s *SQLite) ActivateWeights(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("activate weights: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE relevance_weights SET active = 0 WHERE id <> ?", id); err != nil {
		return fmt.Errorf("deactivate weights: %w", err)
	}
	res, err := tx.ExecContext(ctx, "UPDATE relevance_weights SET active = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("activate weights: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate weights: %w", err)
	}
	if n == 0 {
		return core.ErrWeightsNotFound
	}
	return tx.Commit()
}

func (s *SQLite) CreateInterest(ctx context.Context, name string) (*core.Interest, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO interests (name, created_at) VALUES (?, ?)", name, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("create interest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create interest: %w", err)
	}
	return &core.Interest{ID: id, Name: name}, nil
}

func (s *SQLite) CreatePost(ctx context.Context, text, imageURL string, tagIDs []int64, createdAt time.Time) (*core.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO posts (text, image_url, created_at) VALUES (?, ?, ?)",
		text, imageURL, createdAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	for _, tag := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO post_tags (post_id, interest_id) VALUES (?, ?)", id, tag); err != nil {
			return nil, fmt.Errorf("create post tags: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	return &core.Post{
		ID:        id,
		Text:      text,
		ImageURL:  imageURL,
		TagIDs:    tagIDs,
		CreatedAt: time.Unix(createdAt.Unix(), 0),
	}, nil
}

// SaveUserInterests 整体覆盖用户的主/次兴趣集合；画像的创建是显式步骤，
// 不依赖任何用户创建时的隐式钩子。
func (s *SQLite) SaveUserInterests(ctx context.Context, userID int64, primary, secondary []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save user interests: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_profiles (user_id, created_at) VALUES (?, ?)",
		userID, time.Now().Unix()); err != nil {
		return fmt.Errorf("save user profile: %w", err)
	}

	for table, ids := range map[string][]int64{
		"user_primary_interests":   primary,
		"user_secondary_interests": secondary,
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE user_id = ?", userID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO "+table+" (user_id, interest_id) VALUES (?, ?)", userID, id); err != nil {
				return fmt.Errorf("insert %s: %w", table, err)
			}
		}
	}
	return tx.Commit()
}

// attachTags 一条 IN 查询取回窗口内全部 Post 的标签集合。
func (s *SQLite) attachTags(ctx context.Context, posts []*core.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[int64]*core.Post, len(posts))
	args := make([]any, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		args = append(args, p.ID)
	}

	query := "SELECT post_id, interest_id FROM post_tags WHERE post_id IN (" +
		placeholders(len(posts)) + ") ORDER BY post_id, interest_id"
	rows, err := s.db.QueryContext(ctx, query, args...)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*core.Post, error) {
	var p core.Post
	var createdAt int64
	if err := row.Scan(&p.ID, &p.Text, &p.ImageURL, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

func scanWeights(row rowScanner) (*core.Weights, error) {
	var w core.Weights
	var active int
	var createdAt int64
	if err := row.Scan(&w.ID, &w.Name, &w.PrimaryTag, &w.SecondaryTag, &w.Freshness, &w.SeenPenalty, &active, &createdAt); err != nil {
		return nil, err
	}
	w.Active = active != 0
	w.CreatedAt = time.Unix(createdAt, 0)
	return &w, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var (
	_ core.Repository  = (*SQLite)(nil)
	_ core.WeightAdmin = (*SQLite)(nil)
	_ core.Seeder      = (*SQLite)(nil)
)
