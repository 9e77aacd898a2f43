package profile

import (
	"context"
	"fmt"

	"github.com/rushteam/recserve/core"
)

// Resolver 把用户 ID 解析为（单位范数用户向量, 用户画像）。
// 自身无状态，可跨请求并发使用。
type Resolver struct {
	source AttributeSource
	tower  core.UserTower
	cache  VectorCache // 可选，nil 表示不缓存
}

// ResolverOption 是 Resolver 的配置选项。
type ResolverOption func(*Resolver)

// WithVectorCache 启用用户向量记忆化缓存。
func WithVectorCache(cache VectorCache) ResolverOption {
	return func(r *Resolver) {
		r.cache = cache
	}
}

// NewResolver 构建 Resolver。
func NewResolver(source AttributeSource, tower core.UserTower, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		source: source,
		tower:  tower,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve 执行属性查表 -> 塔推理 -> 单位范数校验。
//
// 语义约束：
//   - 未知用户返回 USER_NOT_FOUND，绝不当作零向量处理
//   - 塔失败返回 SCORE_ERROR，绝不默认为占位向量
//   - 画像永远取自属性表；缓存只作用于向量
func (r *Resolver) Resolve(ctx context.Context, userID int64) ([]float64, core.UserProfile, error) {
	attrs, err := r.source.Attributes(ctx, userID)
	if err != nil {
		return nil, core.UserProfile{}, err
	}
	prof := core.UserProfile{UserID: userID, UserAttributes: attrs}

	if r.cache != nil {
		if vec, ok := r.cache.Get(ctx, userID); ok && len(vec) == r.tower.Dim() {
			return vec, prof, nil
		}
	}

	vec, err := r.tower.Embed(ctx, attrs)
	if err != nil {
		return nil, core.UserProfile{}, fmt.Errorf("embed user %d: %w", userID, err)
	}
	vec, err = core.EnsureUnitNorm(core.ModuleProfile, core.ErrorCodeScoreError, vec, r.tower.Dim())
	if err != nil {
		return nil, core.UserProfile{}, fmt.Errorf("user %d: %w", userID, err)
	}

	if r.cache != nil {
		r.cache.Set(ctx, userID, vec)
	}
	return vec, prof, nil
}

// Profile 只做属性查表，不跑塔推理（画像查询接口使用）。
func (r *Resolver) Profile(ctx context.Context, userID int64) (core.UserProfile, error) {
	attrs, err := r.source.Attributes(ctx, userID)
	if err != nil {
		return core.UserProfile{}, err
	}
	return core.UserProfile{UserID: userID, UserAttributes: attrs}, nil
}

// UserCount 返回属性来源可枚举的用户数（/stats 使用）。
func (r *Resolver) UserCount() int { return r.source.Count() }
