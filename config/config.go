// Package config 提供 feedkit 服务的 YAML 配置加载，以及配置驱动的
// Pipeline Node 构建注册表。
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/feedkit/pipeline"
)

// Config 是服务配置。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Feed    FeedConfig    `yaml:"feed"`
}

// ServerConfig 是 HTTP 服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// RateLimit 每 token 每秒允许的请求数；0 表示不限流
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	// Tokens 是静态 token -> 用户 ID 映射（开发/测试用；
	// 生产环境实现 api.Authenticator 接入真实身份系统）
	Tokens map[string]int64 `yaml:"tokens"`
}

// StorageConfig 是持久化存储配置。
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite / postgres
	DSN    string `yaml:"dsn"`
}

// CacheConfig 是结果缓存配置。
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Backend    string `yaml:"backend"` // memory / redis
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// FeedConfig 是信息流行为配置。
type FeedConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`

	// Rules 是 CEL 过滤规则列表，排在已读过滤之后执行
	Rules []string `yaml:"rules"`

	// Nodes 是追加在排序之后的自定义 Node 配置（可选）
	Nodes []pipeline.NodeConfig `yaml:"nodes"`
}

// Load 从 YAML 文件加载配置并填充默认值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回全默认配置（单机 SQLite + 内存缓存）。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = 20
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.DSN == "" && c.Storage.Driver == "sqlite" {
		c.Storage.DSN = "feedkit.db"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Feed.DefaultPageSize <= 0 {
		c.Feed.DefaultPageSize = 20
	}
	if c.Feed.MaxPageSize <= 0 {
		c.Feed.MaxPageSize = 100
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: postgres storage requires dsn")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		return fmt.Errorf("config: redis cache requires redis_addr")
	}
	if c.Feed.DefaultPageSize > c.Feed.MaxPageSize {
		return fmt.Errorf("config: default_page_size exceeds max_page_size")
	}
	return nil
}
