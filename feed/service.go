// Package feed 组装信息流检索链路：缓存查找 → 解析请求上下文（系数、画像、
// 已读集合）→ Recall/Filter/Rank/ReRank Pipeline → 分页元信息 → 缓存回写。
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/filter"
	"github.com/rushteam/feedkit/pipeline"
	"github.com/rushteam/feedkit/rank"
	"github.com/rushteam/feedkit/recall"
	"github.com/rushteam/feedkit/rerank"
	"github.com/rushteam/feedkit/score"
)

// Service 是信息流核心对外的唯一入口：GetFeed 检索、MarkSeen 标记已读。
// 请求级同步执行，无内部后台计算；同一用户的并发未命中请求可能各自重算
// 一遍（不做 singleflight 去重，接受 at-most-stale 而不是 at-most-once）。
type Service struct {
	repo  core.Repository
	cache *Cache
	log   zerolog.Logger

	rules []filter.Filter
	extra []pipeline.Node
	now   func() time.Time
}

// Option 配置 Service 的可选项。
type Option func(*Service)

// WithRules 追加配置驱动的过滤规则（CEL），排在已读过滤之后执行。
func WithRules(rules ...filter.Filter) Option {
	return func(s *Service) { s.rules = append(s.rules, rules...) }
}

// WithNodes 在排序之后、Top-N 截断之前追加自定义 Node。
func WithNodes(nodes ...pipeline.Node) Option {
	return func(s *Service) { s.extra = append(s.extra, nodes...) }
}

// WithClock 替换打分时钟（测试用）。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService 构建信息流服务；cache 传 nil 表示不启用结果缓存。
func NewService(repo core.Repository, cache *Cache, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetFeed 返回用户的个性化信息流页。
// 入参约定已由调用方校验（page >= 1，pageSize ∈ [1,100]）。
//
// 语义要点：
//   - 已读 Post 整体排除，永远不会再出现在任何页上
//   - 候选窗口先按 created_at 降序切页、之后才按分数排序：
//     时间窗口之外的高分 Post 不会出现在更早的页上（非全局 top-K）
//   - 无画像返回空页，不报错；无激活系数使用默认值
func (s *Service) GetFeed(ctx context.Context, userID int64, page, pageSize int, useCache bool) (*core.FeedPage, error) {
	return s.getFeed(ctx, userID, page, pageSize, nil, useCache)
}

// GetFeedWithWeights 用调用方指定的系数检索（实验/预览用），
// 不读不写结果缓存：缓存 key 不含系数，命中会混淆不同系数的结果。
func (s *Service) GetFeedWithWeights(ctx context.Context, userID int64, page, pageSize int, w *core.Weights) (*core.FeedPage, error) {
	return s.getFeed(ctx, userID, page, pageSize, w, false)
}

func (s *Service) getFeed(ctx context.Context, userID int64, page, pageSize int, override *core.Weights, useCache bool) (*core.FeedPage, error) {
	if useCache && s.cache != nil {
		fp, hit, err := s.cache.Get(ctx, userID, page, pageSize)
		if err != nil {
			return nil, err
		}
		if hit {
			s.log.Debug().Int64("user_id", userID).Int("page", page).Msg("feed cache hit")
			return fp, nil
		}
	}

	fctx, err := s.resolveContext(ctx, userID, override)
	if err != nil {
		return nil, err
	}
	if fctx.Profile == nil {
		// 无画像：显式空页，不缓存
		return core.EmptyFeedPage(page, pageSize), nil
	}

	offset := (page - 1) * pageSize
	p := &pipeline.Pipeline{Nodes: s.buildNodes(offset, pageSize)}

	items, err := p.Run(ctx, fctx, nil)
	if err != nil {
		return nil, fmt.Errorf("feed pipeline: %w", err)
	}
	if items == nil {
		items = []*core.Item{}
	}

	result := &core.FeedPage{
		Posts:      items,
		Pagination: core.NewPagination(page, pageSize, fctx.TotalUnseen),
	}

	if useCache && s.cache != nil {
		if err := s.cache.Set(ctx, userID, page, pageSize, result); err != nil {
			return nil, err
		}
	}

	s.log.Debug().
		Int64("user_id", userID).
		Int("page", page).
		Int("page_size", pageSize).
		Int("total_unseen", fctx.TotalUnseen).
		Int("returned", len(items)).
		Msg("feed computed")

	return result, nil
}

// MarkSeen 记录已读（幂等）并整体失效该用户的结果缓存。
func (s *Service) MarkSeen(ctx context.Context, userID, postID int64) error {
	if _, err := s.repo.GetPost(ctx, postID); err != nil {
		return err
	}
	if err := s.repo.RecordSeen(ctx, userID, postID); err != nil {
		return fmt.Errorf("record seen: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, userID); err != nil {
			return err
		}
	}
	s.log.Debug().Int64("user_id", userID).Int64("post_id", postID).Msg("post marked seen")
	return nil
}

// ScorePost 对单条 Post 做展示用打分：检索链路里已读惩罚分支不会命中
// （已读 Post 不进候选），直接打分路径仍然完整（已读时乘惩罚乘数）。
func (s *Service) ScorePost(ctx context.Context, userID, postID int64) (float64, error) {
	post, err := s.repo.GetPost(ctx, postID)
	if err != nil {
		return 0, err
	}

	fctx, err := s.resolveContext(ctx, userID, nil)
	if err != nil {
		return 0, err
	}
	if fctx.Profile == nil {
		return 0, nil
	}

	seen := fctx.SeenIDs.Has(postID)
	return score.Post(fctx.Profile, post, seen, fctx.Weights, fctx.Now), nil
}

// ListInterests 列出全部兴趣标签。
func (s *Service) ListInterests(ctx context.Context) ([]*core.Interest, error) {
	return s.repo.ListInterests(ctx)
}

// resolveContext 并发取系数/画像/已读集合，组装请求上下文。
// override 非空时直接使用调用方的系数，不查激活配置。
// "无画像""无激活系数"两类 NOT_FOUND 在此被吸收，其余错误照实上抛。
func (s *Service) resolveContext(ctx context.Context, userID int64, override *core.Weights) (*core.FeedContext, error) {
	fctx := &core.FeedContext{
		UserID: userID,
		Now:    s.now(),
	}

	g, gctx := errgroup.WithContext(ctx)

	if override != nil {
		fctx.Weights = *override
	} else {
		g.Go(func() error {
			w, err := s.repo.ActiveWeights(gctx)
			if err != nil {
				if core.IsNotFound(err) {
					fctx.Weights = core.DefaultWeights()
					return nil
				}
				return fmt.Errorf("resolve weights: %w", err)
			}
			fctx.Weights = *w
			return nil
		})
	}

	g.Go(func() error {
		profile, err := s.repo.FetchUserInterests(gctx, userID)
		if err != nil {
			if core.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("resolve profile: %w", err)
		}
		fctx.Profile = profile
		return nil
	})

	g.Go(func() error {
		seen, err := s.repo.FetchSeenPostIDs(gctx, userID)
		if err != nil {
			return fmt.Errorf("resolve seen posts: %w", err)
		}
		fctx.SeenIDs = seen
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fctx, nil
}

func (s *Service) buildNodes(offset, limit int) []pipeline.Node {
	filters := make([]filter.Filter, 0, 1+len(s.rules))
	filters = append(filters, &filter.SeenFilter{})
	filters = append(filters, s.rules...)

	nodes := []pipeline.Node{
		&recall.Window{Repo: s.repo, Offset: offset, Limit: limit},
		&filter.Node{Filters: filters},
		&rank.WeightedNode{},
	}
	nodes = append(nodes, s.extra...)
	nodes = append(nodes, &rerank.TopNNode{N: limit})
	return nodes
}
