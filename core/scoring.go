package core

import (
	"context"
	"fmt"
	"math"
)

// UserTower 是用户塔的纯函数能力接口：离散属性 -> D 维向量。
//
// 设计原则：
//   - 无状态：给定模型产物，同样的输入永远产出同样的向量
//   - Resolver 只负责编排属性查表和本接口的调用，不感知具体打分后端
//   - 测试中可用桩实现替换
type UserTower interface {
	// Dim 返回输出向量维度 D
	Dim() int

	// Embed 将用户属性映射为 D 维向量（调用方负责单位范数校验）
	Embed(ctx context.Context, attrs UserAttributes) ([]float64, error)
}

// RankScorer 是排序打分的纯函数能力接口：[user ‖ item]（2D 维）-> 标量分数。
// 分数不做裁剪，名义域通常在 [1,5] 但不保证。
type RankScorer interface {
	// InputDim 返回期望的输入维度（2D）
	InputDim() int

	// Score 对拼接后的特征向量打分
	Score(ctx context.Context, features []float64) (float64, error)
}

// 单位范数约束参数。
// NormTolerance 内视为合法；范数落在 (RenormLowerBound, RenormUpperBound)
// 时重新归一化；否则拒绝。
const (
	NormTolerance    = 1e-3
	RenormLowerBound = 0.5
	RenormUpperBound = 2.0
)

// L2Norm 计算向量的 L2 范数。
func L2Norm(vec []float64) float64 {
	sum := 0.0
	for _, v := range vec {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// EnsureUnitNorm 对向量施加单位范数不变量。
// 返回满足 ‖v‖₂ = 1 ± NormTolerance 的向量；必要时返回重新归一化后的副本。
// 维度不符或范数越界时返回 code 指定的领域错误，绝不静默截断/填充。
// 加载期传 ARTIFACT_LOAD，请求期（用户向量）传 SCORE_ERROR。
func EnsureUnitNorm(module, code string, vec []float64, dim int) ([]float64, error) {
	if len(vec) != dim {
		return nil, NewDomainError(module, code,
			fmt.Sprintf("vector dimension mismatch: got %d, want %d", len(vec), dim))
	}
	norm := L2Norm(vec)
	if math.Abs(norm-1.0) <= NormTolerance {
		return vec, nil
	}
	if norm <= RenormLowerBound || norm >= RenormUpperBound {
		return nil, NewDomainError(module, code,
			fmt.Sprintf("vector norm %.6f outside renormalizable bound (%.1f, %.1f)",
				norm, RenormLowerBound, RenormUpperBound))
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out, nil
}
