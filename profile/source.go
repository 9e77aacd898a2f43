// Package profile 把用户 ID 解析为（用户向量, 用户画像）。
//
// 解析是纯函数调用的编排：属性查表 -> 用户塔推理 -> 单位范数校验。
// 本包不感知具体打分后端（core.UserTower 可替换/可打桩），
// 属性来源同样抽象为 AttributeSource（内存表 / Feast 在线特征库）。
package profile

import (
	"context"
	"fmt"

	"github.com/rushteam/recserve/core"
)

// AttributeSource 是用户离散属性的查找接口。
type AttributeSource interface {
	// Attributes 按用户 ID 查属性；未知用户返回 USER_NOT_FOUND
	Attributes(ctx context.Context, userID int64) (core.UserAttributes, error)

	// Count 返回已知用户数；无法枚举的来源（如 Feast）返回 0
	Count() int
}

// TableSource 是内存查找表实现，数据来自产物包的 users bucket。
// 加载后只读，并发访问无需同步。
type TableSource struct {
	users map[int64]core.UserAttributes
}

// NewTableSource 从属性表构建 TableSource。
func NewTableSource(users map[int64]core.UserAttributes) (*TableSource, error) {
	if len(users) == 0 {
		return nil, core.NewDomainError(core.ModuleProfile, core.ErrorCodeArtifactLoad,
			"empty user attribute table")
	}
	return &TableSource{users: users}, nil
}

// Attributes 实现 AttributeSource 接口。
func (s *TableSource) Attributes(_ context.Context, userID int64) (core.UserAttributes, error) {
	attrs, ok := s.users[userID]
	if !ok {
		return core.UserAttributes{}, core.NewDomainError(core.ModuleProfile, core.ErrorCodeUserNotFound,
			fmt.Sprintf("user %d not found", userID))
	}
	return attrs, nil
}

// Count 实现 AttributeSource 接口。
func (s *TableSource) Count() int { return len(s.users) }

var _ AttributeSource = (*TableSource)(nil)
