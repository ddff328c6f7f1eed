package api

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rushteam/feedkit/core"
)

// ErrInvalidToken 表示 token 缺失或无效。
var ErrInvalidToken = core.NewDomainError("api", core.ErrorCodeInvalidInput, "api: invalid token")

// Authenticator 是身份校验的协作方接口：身份与凭证管理本身在 feedkit
// 范围之外，HTTP 层只需要 token → 用户 ID 的解析能力。
type Authenticator interface {
	// Authenticate 解析 token，返回用户 ID；无效 token 返回 ErrInvalidToken。
	Authenticate(ctx context.Context, token string) (int64, error)
}

// StaticAuthenticator 是静态 token 表实现，用于开发/测试。
// 生产环境用真实身份服务实现 Authenticator。
type StaticAuthenticator struct {
	mu     sync.RWMutex
	tokens map[string]int64
}

func NewStaticAuthenticator(tokens map[string]int64) *StaticAuthenticator {
	if tokens == nil {
		tokens = make(map[string]int64)
	}
	return &StaticAuthenticator{tokens: tokens}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (int64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if userID, ok := a.tokens[token]; ok {
		return userID, nil
	}
	return 0, ErrInvalidToken
}

// IssueToken 为用户生成一个新 token 并登记。
func (a *StaticAuthenticator) IssueToken(userID int64) string {
	token := uuid.New().String()
	a.mu.Lock()
	a.tokens[token] = userID
	a.mu.Unlock()
	return token
}

var _ Authenticator = (*StaticAuthenticator)(nil)
