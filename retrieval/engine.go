// Package retrieval 实现第一阶段召回：用户向量对全目录的批量相似度扫描 + Top-K 选取。
//
// 这是整条链路的主要开销（O(N·D)）。目录矩阵是连续内存的行主序平铺，
// 扫描按行块切分到多个 goroutine（errgroup），每行写各自的 scores 槽位，
// 分片间无共享写，天然无锁。双方向量都满足单位范数不变量，
// 内积即余弦相似度。
package retrieval

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/recserve/catalog"
	"github.com/rushteam/recserve/core"
)

const (
	// 每处理这么多行检查一次 ctx，兼顾取消响应速度与检查开销。
	cancelCheckRows = 4096

	// 低于这个行数的分片不值得开 goroutine
	minShardRows = 64
)

// Engine 是召回引擎。无状态（目录只读），可跨请求并发使用。
type Engine struct {
	store  *catalog.Store
	shards int
}

// Option 是 Engine 的配置选项。
type Option func(*Engine)

// WithShards 设置目录扫描的并行分片数；默认 GOMAXPROCS。
func WithShards(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.shards = n
		}
	}
}

// New 构建召回引擎。
func New(store *catalog.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		shards: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve 对全目录打分并返回 Top-K 候选。
//
// 约束：
//   - 0 < k ≤ 目录大小，否则 INVALID_PARAMETER
//   - 结果按检索分数降序；同分按 MovieID 升序（确定性）
//   - 每个物品恰好打分一次，结果无重复 ID
func (e *Engine) Retrieve(ctx context.Context, userVec []float64, k int) ([]core.CandidateScore, error) {
	n := e.store.Len()
	dim := e.store.Dim()

	if k <= 0 || k > n {
		return nil, core.NewDomainError(core.ModuleRetrieval, core.ErrorCodeInvalidParameter,
			fmt.Sprintf("top_k_retrieve must be in [1, %d], got %d", n, k))
	}
	if len(userVec) != dim {
		return nil, core.NewDomainError(core.ModuleRetrieval, core.ErrorCodeInvalidParameter,
			fmt.Sprintf("user vector dimension %d, want %d", len(userVec), dim))
	}

	scores := make([]float64, n)
	if err := e.scan(ctx, userVec, scores); err != nil {
		return nil, err
	}

	return selectTopK(e.store.IDs(), scores, k), nil
}

// scan 执行批量矩阵-向量乘：scores[i] = dot(matrix[i], userVec)。
// 行块切分到 e.shards 个 goroutine；小目录不值得切分，退化为单枚。
func (e *Engine) scan(ctx context.Context, userVec []float64, scores []float64) error {
	n := len(scores)
	matrix := e.store.Matrix()
	dim := e.store.Dim()

	shards := e.shards
	if n < shards*minShardRows {
		shards = 1
	}

	eg, ctx := errgroup.WithContext(ctx)
	chunk := (n + shards - 1) / shards
	for s := 0; s < shards; s++ {
		lo := s * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}
		eg.Go(func() error {
			return scanRows(ctx, matrix, userVec, scores, lo, hi, dim)
		})
	}
	return eg.Wait()
}

// scanRows 对 [lo, hi) 行做内积。取消时丢弃半成品即可——没有任何副作用被提交。
func scanRows(ctx context.Context, matrix, userVec, scores []float64, lo, hi, dim int) error {
	for i := lo; i < hi; i++ {
		if (i-lo)%cancelCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		row := matrix[i*dim : (i+1)*dim]
		sum := 0.0
		// 4 路手工展开：消除逐元素循环的边界检查开销
		j := 0
		for ; j+4 <= dim; j += 4 {
			sum += row[j]*userVec[j] +
				row[j+1]*userVec[j+1] +
				row[j+2]*userVec[j+2] +
				row[j+3]*userVec[j+3]
		}
		for ; j < dim; j++ {
			sum += row[j] * userVec[j]
		}
		scores[i] = sum
	}
	return nil
}
