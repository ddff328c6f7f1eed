package core

import "context"

// Store 是缓存后端的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 信息流结果缓存（feed.Cache）
//
// 实现：
//   - store.MemoryStore 实现此接口（测试/开发/单机）
//   - store.RedisStore 实现此接口（生产/多实例共享）
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值；key 不存在或已过期返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，可选 TTL（秒）；ttl 缺省或 <=0 表示不过期
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除单个 key；key 不存在不算错误
	Delete(ctx context.Context, key string) error

	// Close 关闭连接/释放资源
	Close() error
}
