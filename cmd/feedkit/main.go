package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/feedkit/api"
	"github.com/rushteam/feedkit/config"
	"github.com/rushteam/feedkit/core"
	"github.com/rushteam/feedkit/feed"
	"github.com/rushteam/feedkit/storage"
	"github.com/rushteam/feedkit/store"
)

// repository 聚合服务进程需要的全部存储能力。
type repository interface {
	core.Repository
	core.WeightAdmin
	core.Seeder
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(log, os.Args[2:])
	case "seed":
		err = runSeed(log, os.Args[2:])
	case "init-weights":
		err = runInitWeights(log, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: feedkit <command> [flags]

commands:
  serve         启动信息流 HTTP 服务
  seed          生成测试数据（兴趣标签 + 随机 Post）
  init-weights  无激活配置时创建并激活默认打分系数`)
}

func runServe(log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "配置文件路径（YAML）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	var cache *feed.Cache
	if cfg.Cache.Enabled {
		var backend core.Store
		switch cfg.Cache.Backend {
		case "redis":
			backend, err = store.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
		default:
			backend = store.NewMemoryStore()
		}
		defer backend.Close()
		cache = feed.NewCache(backend, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		log.Info().Str("backend", backend.Name()).Msg("result cache enabled")
	}

	rules, err := config.BuildRuleFilters(cfg.Feed.Rules)
	if err != nil {
		return err
	}
	extra, err := config.BuildExtraNodes(cfg.Feed.Nodes)
	if err != nil {
		return err
	}

	svc := feed.NewService(repo, cache, log,
		feed.WithRules(rules...),
		feed.WithNodes(extra...),
	)

	auth := api.NewStaticAuthenticator(cfg.Server.Tokens)
	server := api.NewServer(svc, auth, log,
		api.WithPageSizes(cfg.Feed.DefaultPageSize, cfg.Feed.MaxPageSize),
		api.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("feedkit serving")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("feedkit stopped")
	}
	return nil
}

// 默认的兴趣标签与示例文案，seed 用。
var (
	seedInterests = []string{
		"music", "sports", "travel", "food", "technology",
		"art", "fashion", "fitness", "nature", "photography",
	}
	seedTexts = []string{
		"Just discovered this amazing place!",
		"Sometimes you need to take a step back and appreciate the little things.",
		"Adventure awaits around every corner.",
		"Every day is a new opportunity.",
		"The best is yet to come.",
		"Nature has a way of healing everything.",
		"Weekend project finally done.",
		"Small wins add up.",
	}
)

func runSeed(log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	cfgPath := fs.String("config", "", "配置文件路径（YAML）")
	count := fs.Int("count", 150, "生成的 Post 数量")
	days := fs.Int("days", 30, "Post 创建时间分布的天数范围")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	// 兴趣标签：已存在的跳过
	existing, err := repo.ListInterests(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]int64, len(existing))
	for _, it := range existing {
		have[it.Name] = it.ID
	}
	tagIDs := make([]int64, 0, len(seedInterests))
	for _, name := range seedInterests {
		if id, ok := have[name]; ok {
			tagIDs = append(tagIDs, id)
			continue
		}
		it, err := repo.CreateInterest(ctx, name)
		if err != nil {
			return err
		}
		tagIDs = append(tagIDs, it.ID)
	}
	log.Info().Int("interests", len(tagIDs)).Msg("interests ready")

	now := time.Now()
	for i := 0; i < *count; i++ {
		text := seedTexts[rand.Intn(len(seedTexts))]
		createdAt := now.Add(-time.Duration(rand.Int63n(int64(*days) * 24 * int64(time.Hour))))

		n := 1 + rand.Intn(3)
		tags := make([]int64, 0, n)
		seen := make(map[int64]bool, n)
		for len(tags) < n {
			id := tagIDs[rand.Intn(len(tagIDs))]
			if !seen[id] {
				seen[id] = true
				tags = append(tags, id)
			}
		}

		if _, err := repo.CreatePost(ctx, text, "", tags, createdAt); err != nil {
			return err
		}
	}
	log.Info().Int("posts", *count).Msg("seed complete")
	return nil
}

func runInitWeights(log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("init-weights", flag.ExitOnError)
	cfgPath := fs.String("config", "", "配置文件路径（YAML）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if w, err := repo.ActiveWeights(ctx); err == nil {
		log.Info().Str("name", w.Name).Msg("active weights already exist, skipping")
		return nil
	} else if !core.IsNotFound(err) {
		return err
	}

	w := core.DefaultWeights()
	if err := repo.SaveWeights(ctx, &w); err != nil {
		return err
	}
	if err := repo.ActivateWeights(ctx, w.ID); err != nil {
		return err
	}
	log.Info().
		Float64("primary", w.PrimaryTag).
		Float64("secondary", w.SecondaryTag).
		Float64("freshness", w.Freshness).
		Float64("seen_penalty", w.SeenPenalty).
		Msg("default weights created and activated")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func openRepository(ctx context.Context, cfg *config.Config) (repository, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return storage.NewPostgres(ctx, cfg.Storage.DSN)
	default:
		return storage.NewSQLite(cfg.Storage.DSN)
	}
}
