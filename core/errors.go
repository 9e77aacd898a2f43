package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 错误分层：
//   - ARTIFACT_LOAD 仅出现在启动阶段，属于致命错误，进程必须拒绝服务
//   - 其余代码均为请求级错误，在编排层边界被捕获并转为结构化响应
type DomainError struct {
	Code    string // 错误代码（如 "USER_NOT_FOUND", "INVALID_PARAMETER"）
	Message string // 错误消息
	Module  string // 模块名称（如 "catalog", "profile", "retrieval"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// GetDomainError 获取 DomainError，如果不是则返回 nil。
// 使用 errors.As 支持被 fmt.Errorf("%w") 包装过的错误。
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

// 错误代码常量
const (
	ErrorCodeArtifactLoad     = "ARTIFACT_LOAD"      // 产物加载失败（致命，仅启动期）
	ErrorCodeNotFound         = "NOT_FOUND"          // 物品不存在
	ErrorCodeUserNotFound     = "USER_NOT_FOUND"     // 用户不存在
	ErrorCodeInvalidParameter = "INVALID_PARAMETER"  // 参数越界（K/N）
	ErrorCodeScoreError       = "SCORE_ERROR"        // 外部打分函数失败
	ErrorCodeInternalError    = "INTERNAL_ERROR"     // 内部错误
)

// 模块名称常量
const (
	ModuleCatalog   = "catalog"   // 目录存储
	ModuleProfile   = "profile"   // 用户画像解析
	ModuleRetrieval = "retrieval" // 召回引擎
	ModuleRanking   = "ranking"   // 排序引擎
	ModuleRecommend = "recommend" // 推荐编排
	ModuleModel     = "model"     // 模型产物
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsArtifactLoad 检查错误是否为 ARTIFACT_LOAD。
func IsArtifactLoad(err error) bool { return hasCode(err, ErrorCodeArtifactLoad) }

// IsNotFound 检查错误是否为 NOT_FOUND。
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsUserNotFound 检查错误是否为 USER_NOT_FOUND。
func IsUserNotFound(err error) bool { return hasCode(err, ErrorCodeUserNotFound) }

// IsInvalidParameter 检查错误是否为 INVALID_PARAMETER。
func IsInvalidParameter(err error) bool { return hasCode(err, ErrorCodeInvalidParameter) }

// IsScoreError 检查错误是否为 SCORE_ERROR。
func IsScoreError(err error) bool { return hasCode(err, ErrorCodeScoreError) }
