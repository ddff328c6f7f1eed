package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "feed", "storage"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取 DomainError（支持 %w 包装链），如果不是则返回 nil。
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 依赖不可用
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore   = "store"   // 缓存后端
	ModuleStorage = "storage" // 持久化存储
	ModuleFeed    = "feed"    // 信息流服务
	ModuleConfig  = "config"  // 配置
)

// 领域错误定义
var (
	// ErrStoreNotFound 表示缓存 key 不存在
	ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

	// ErrProfileNotFound 表示用户没有兴趣画像（按约定不是错误，调用方返回空页）
	ErrProfileNotFound = NewDomainError(ModuleStorage, ErrorCodeNotFound, "storage: user profile not found")

	// ErrWeightsNotFound 表示没有激活的系数配置（按约定不是错误，调用方使用默认值）
	ErrWeightsNotFound = NewDomainError(ModuleStorage, ErrorCodeNotFound, "storage: no active weights")

	// ErrPostNotFound 表示 Post 不存在
	ErrPostNotFound = NewDomainError(ModuleStorage, ErrorCodeNotFound, "storage: post not found")
)

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsStoreNotFound 检查错误是否为缓存 key 不存在。
func IsStoreNotFound(err error) bool {
	if err == nil {
		return false
	}
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}
