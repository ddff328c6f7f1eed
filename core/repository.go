package core

import (
	"context"
	"time"
)

// Repository 是信息流核心对持久化存储的领域接口。
// 用户/Post/兴趣/已读记录的持久化格式由存储层决定，核心只消费查询结果。
//
// 实现：
//   - storage.SQLite（modernc.org/sqlite，单机/嵌入式）
//   - storage.Postgres（jackc/pgx，生产）
type Repository interface {
	// FetchUnseenWindow 取未读候选窗口 [offset, offset+limit)，
	// 按 created_at 降序（同刻按 id 降序），并返回排除已读后的未读总数。
	// 窗口先按时间切、后按分数排：不保证全局 top-K 语义。
	FetchUnseenWindow(ctx context.Context, userID int64, seen IDSet, offset, limit int) ([]*Post, int, error)

	// FetchUserInterests 取用户的主/次兴趣 ID 集合；无画像返回 ErrProfileNotFound。
	FetchUserInterests(ctx context.Context, userID int64) (*UserProfile, error)

	// FetchSeenPostIDs 取用户全部已读 Post ID。
	FetchSeenPostIDs(ctx context.Context, userID int64) (IDSet, error)

	// RecordSeen 记录已读（幂等：重复记录是 no-op，不报错）。
	RecordSeen(ctx context.Context, userID, postID int64) error

	// ActiveWeights 取当前激活的系数配置；无激活配置返回 ErrWeightsNotFound。
	// 若异常出现多条激活（激活竞争的瞬态），按 created_at、id 降序确定性取一条。
	ActiveWeights(ctx context.Context) (*Weights, error)

	// GetPost 取单条 Post（含标签）；不存在返回 ErrPostNotFound。
	GetPost(ctx context.Context, postID int64) (*Post, error)

	// ListInterests 列出全部兴趣标签，按名称升序。
	ListInterests(ctx context.Context) ([]*Interest, error)

	// Close 关闭连接/释放资源
	Close() error
}

// WeightAdmin 是系数配置的管理操作，由存储层实现、管理工具使用。
// Activate 必须在事务内先取消其它配置的激活，保证"至多一个激活"不变式。
type WeightAdmin interface {
	// SaveWeights 新建一份系数配置（不改变激活状态），回填 ID。
	SaveWeights(ctx context.Context, w *Weights) error

	// ActivateWeights 激活指定配置并原子地取消其它全部配置的激活；
	// 配置不存在返回 ErrWeightsNotFound。
	ActivateWeights(ctx context.Context, id int64) error
}

// Seeder 是数据准备操作：建标签、建 Post、维护用户画像。
// 注册流程的画像写入是显式步骤，核心不依赖任何隐式的画像自动创建。
type Seeder interface {
	// CreateInterest 新建兴趣标签（name 唯一），回填 ID。
	CreateInterest(ctx context.Context, name string) (*Interest, error)

	// CreatePost 新建 Post，回填 ID。
	CreatePost(ctx context.Context, text, imageURL string, tagIDs []int64, createdAt time.Time) (*Post, error)

	// SaveUserInterests 整体覆盖用户的主/次兴趣集合（无画像时创建）。
	SaveUserInterests(ctx context.Context, userID int64, primary, secondary []int64) error
}
