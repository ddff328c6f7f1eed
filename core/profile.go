package core

import "sort"

// IDSet 是 int64 ID 集合，用于兴趣 ID、已读 Post ID 的 O(1) 成员判断。
type IDSet map[int64]struct{}

// NewIDSet 由 ID 列表构建集合（自动去重）。
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

func (s IDSet) Len() int { return len(s) }

// Slice 返回升序的 ID 列表，用于构造确定性的存储查询。
func (s IDSet) Slice() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UserProfile 是用户兴趣画像：主兴趣与次兴趣两档。
// 两档在用途上独立，但成员允许重叠。由注册/用户流程维护，打分链路只读。
type UserProfile struct {
	UserID    int64
	Primary   IDSet // 主兴趣 Interest ID 集合
	Secondary IDSet // 次兴趣 Interest ID 集合
}

func NewUserProfile(userID int64) *UserProfile {
	return &UserProfile{
		UserID:    userID,
		Primary:   make(IDSet),
		Secondary: make(IDSet),
	}
}
