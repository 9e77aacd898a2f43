// Package ranking 实现第二阶段精排：对 K 个候选用外部打分函数重新打分并排序。
//
// 本阶段不改变候选集合——只重排 + 标注分数。分数不做裁剪透传，
// 名义域通常在 [1,5] 但不保证。
package ranking

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/recserve/catalog"
	"github.com/rushteam/recserve/core"
)

// Engine 是排序引擎。无状态，可跨请求并发使用。
type Engine struct {
	store  *catalog.Store
	scorer core.RankScorer
}

// New 构建排序引擎，并校验打分器输入维度是 2D（[user ‖ item] 拼接）。
func New(store *catalog.Store, scorer core.RankScorer) (*Engine, error) {
	if want := 2 * store.Dim(); scorer.InputDim() != want {
		return nil, core.NewDomainError(core.ModuleRanking, core.ErrorCodeArtifactLoad,
			fmt.Sprintf("rank scorer input dim %d, want %d", scorer.InputDim(), want))
	}
	return &Engine{store: store, scorer: scorer}, nil
}

// Rank 对候选重新打分并排序。
//
// 排序键（完全确定性）：
//  1. 排序分数降序
//  2. 检索分数降序
//  3. MovieID 升序
//
// 打分函数失败返回 SCORE_ERROR——绝不静默降级为零分。
func (e *Engine) Rank(ctx context.Context, userVec []float64, candidates []core.CandidateScore) ([]core.RankedRecommendation, error) {
	dim := e.store.Dim()
	if len(userVec) != dim {
		return nil, core.NewDomainError(core.ModuleRanking, core.ErrorCodeInvalidParameter,
			fmt.Sprintf("user vector dimension %d, want %d", len(userVec), dim))
	}

	ranked := make([]core.RankedRecommendation, len(candidates))
	features := make([]float64, 2*dim)
	copy(features, userVec)

	for i, c := range candidates {
		itemVec, err := e.store.VectorOf(c.MovieID)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", c.MovieID, err)
		}
		copy(features[dim:], itemVec)

		score, err := e.scorer.Score(ctx, features)
		if err != nil {
			if core.GetDomainError(err) != nil {
				return nil, fmt.Errorf("score movie %d: %w", c.MovieID, err)
			}
			return nil, core.NewDomainError(core.ModuleRanking, core.ErrorCodeScoreError,
				fmt.Sprintf("score movie %d: %v", c.MovieID, err))
		}

		ranked[i] = core.RankedRecommendation{
			MovieID:        c.MovieID,
			RankingScore:   score,
			RetrievalScore: c.Retrieval,
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.RankingScore != b.RankingScore {
			return a.RankingScore > b.RankingScore
		}
		if a.RetrievalScore != b.RetrievalScore {
			return a.RetrievalScore > b.RetrievalScore
		}
		return a.MovieID < b.MovieID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}
