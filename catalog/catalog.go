// Package catalog 持有不可变、常驻内存的物品目录：向量 + 元信息。
//
// 生命周期：进程启动时从产物包构建一次，之后只读。多请求并发读取
// 无需任何同步——没有写者与读者并发。若未来支持热更新，必须整包
// 重建并原子换指针，绝不原地修改。
package catalog

import (
	"fmt"
	"sort"

	"github.com/rushteam/recserve/core"
)

// Store 是已加载并通过校验的目录句柄。
//
// 向量平铺为一块连续的行主序矩阵（len = N*D），召回阶段对整块内存做
// 一次批量矩阵-向量乘，避免逐物品的调度开销。行序为 MovieID 升序，
// 保证任何遍历都是确定性的。
type Store struct {
	dim    int
	ids    []int64         // MovieID 升序
	index  map[int64]int   // MovieID -> 行号
	matrix []float64       // 行主序，第 i 行是 ids[i] 的向量
	meta   map[int64]core.ItemMetadata

	genreCount int
}

// New 从向量表和元信息表构建 Store，并施加全部加载期校验：
//   - 每个向量维度必须等于 dim（违规拒绝，不截断不填充）
//   - 每个向量必须满足单位范数不变量（容差内通过 / 宽松界内重归一化 / 否则拒绝）
//   - 向量与元信息的 ID 集合必须完全相等（不允许孤儿向量或孤儿元信息）
//
// 任意一条校验失败都返回 ARTIFACT_LOAD；调用方（启动路径）必须视为致命。
func New(dim int, vectors map[int64][]float64, meta map[int64]core.ItemMetadata) (*Store, error) {
	if dim <= 0 {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
			fmt.Sprintf("invalid catalog dimension %d", dim))
	}
	if len(vectors) == 0 {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
			"empty item vector table")
	}

	for id := range vectors {
		if _, ok := meta[id]; !ok {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
				fmt.Sprintf("orphaned vector: movie %d has no metadata", id))
		}
	}
	for id := range meta {
		if _, ok := vectors[id]; !ok {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
				fmt.Sprintf("orphaned metadata: movie %d has no vector", id))
		}
	}

	ids := make([]int64, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s := &Store{
		dim:    dim,
		ids:    ids,
		index:  make(map[int64]int, len(ids)),
		matrix: make([]float64, len(ids)*dim),
		meta:   make(map[int64]core.ItemMetadata, len(meta)),
	}

	genres := make(map[string]struct{})
	for row, id := range ids {
		vec, err := core.EnsureUnitNorm(core.ModuleCatalog, core.ErrorCodeArtifactLoad, vectors[id], dim)
		if err != nil {
			return nil, fmt.Errorf("movie %d: %w", id, err)
		}
		copy(s.matrix[row*dim:(row+1)*dim], vec)
		s.index[id] = row

		m := meta[id]
		s.meta[id] = m
		for _, g := range m.Genres {
			genres[g] = struct{}{}
		}
	}
	s.genreCount = len(genres)

	return s, nil
}

// Len 返回目录内物品数量。
func (s *Store) Len() int { return len(s.ids) }

// Dim 返回向量维度 D。
func (s *Store) Dim() int { return s.dim }

// GenreCount 返回全目录去重后的类型数量。
func (s *Store) GenreCount() int { return s.genreCount }

// IDs 返回 MovieID 升序的物品 ID 序列。返回值只读，调用方不得修改。
func (s *Store) IDs() []int64 { return s.ids }

// Matrix 返回平铺的行主序向量矩阵（与 IDs 同序）。返回值只读。
// 仅供召回引擎做批量扫描使用。
func (s *Store) Matrix() []float64 { return s.matrix }

// VectorOf 按 MovieID 取向量。返回值只读。
func (s *Store) VectorOf(movieID int64) ([]float64, error) {
	row, ok := s.index[movieID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound,
			fmt.Sprintf("movie %d not found", movieID))
	}
	return s.matrix[row*s.dim : (row+1)*s.dim], nil
}

// MetadataOf 按 MovieID 取元信息。
func (s *Store) MetadataOf(movieID int64) (core.ItemMetadata, error) {
	m, ok := s.meta[movieID]
	if !ok {
		return core.ItemMetadata{}, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound,
			fmt.Sprintf("movie %d not found", movieID))
	}
	return m, nil
}
