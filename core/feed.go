package core

import "time"

// Pagination 是分页元信息。TotalPosts 取打分前按时间窗口统计的未读总数，
// 而不是排序后的数量。
type Pagination struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalPosts  int  `json:"total_posts"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPagination 由未读总数计算分页元信息：
//   - TotalPages = ceil(total / pageSize)
//   - HasNext    = offset + pageSize < total
//   - HasPrevious = page > 1
func NewPagination(page, pageSize, total int) Pagination {
	offset := (page - 1) * pageSize
	return Pagination{
		Page:        page,
		PageSize:    pageSize,
		TotalPosts:  total,
		TotalPages:  (total + pageSize - 1) / pageSize,
		HasNext:     offset+pageSize < total,
		HasPrevious: page > 1,
	}
}

// FeedPage 是一次信息流请求的结果：按分数降序的 Item 列表加分页元信息。
// 可整体 JSON 序列化，直接作为缓存值与响应体。
type FeedPage struct {
	Posts      []*Item    `json:"posts"`
	Pagination Pagination `json:"pagination"`
}

// EmptyFeedPage 是"用户无画像"时的空结果：不报错，返回空页。
func EmptyFeedPage(page, pageSize int) *FeedPage {
	return &FeedPage{
		Posts: []*Item{},
		Pagination: Pagination{
			Page:     page,
			PageSize: pageSize,
		},
	}
}

// FeedContext 承载单次信息流请求的已解析上下文，贯穿整个 Pipeline 透传。
// 各字段由 feed.Service 在进入 Pipeline 前一次性解析好，Node 不再回源查询。
type FeedContext struct {
	UserID int64

	// Profile 已解析的用户画像；无画像的请求不会进入 Pipeline
	Profile *UserProfile

	// SeenIDs 用户全部已读 Post ID，候选窗口取数时整体排除
	SeenIDs IDSet

	// Weights 本次请求生效的系数（激活配置或兜底默认值）
	Weights Weights

	// Now 统一的打分时刻，保证同一批候选的新鲜度基准一致
	Now time.Time

	// TotalUnseen 由召回 Node 回填：打分前的未读总数，用于分页元信息
	TotalUnseen int
}
