// Package recommend 是推荐编排层：校验参数、串联
// 画像解析 -> 召回 -> （可选过滤）-> 精排 -> 截断，并拼装响应。
//
// 编排器自身无状态；请求之间除只读目录外不共享任何东西，
// 任一阶段失败都不会留下需要补偿的副作用，取消永远是安全的。
package recommend

import (
	"context"
	"fmt"

	"github.com/rushteam/recserve/catalog"
	"github.com/rushteam/recserve/core"
	"github.com/rushteam/recserve/filter"
	"github.com/rushteam/recserve/profile"
	"github.com/rushteam/recserve/ranking"
	"github.com/rushteam/recserve/retrieval"
)

// Recommendation 是返回给调用方的单条推荐（已拼装元信息）。
type Recommendation struct {
	Rank           int
	MovieID        int64
	Title          string
	Genres         []string
	Year           int
	RankingScore   float64
	RetrievalScore float64
}

// Result 是一次推荐请求的完整结果。
type Result struct {
	UserID          int64
	Gender          string
	Age             int
	Occupation      int
	Recommendations []Recommendation
}

// Service 是推荐编排器。
type Service struct {
	store     *catalog.Store
	resolver  *profile.Resolver
	retrieval *retrieval.Engine
	ranking   *ranking.Engine
	filter    *filter.CandidateFilter // 可选，nil 表示不过滤
}

// ServiceOption 是 Service 的配置选项。
type ServiceOption func(*Service)

// WithCandidateFilter 在召回和精排之间启用候选过滤。
func WithCandidateFilter(f *filter.CandidateFilter) ServiceOption {
	return func(s *Service) {
		s.filter = f
	}
}

// NewService 构建编排器。
func NewService(
	store *catalog.Store,
	resolver *profile.Resolver,
	retrievalEngine *retrieval.Engine,
	rankingEngine *ranking.Engine,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		store:     store,
		resolver:  resolver,
		retrieval: retrievalEngine,
		ranking:   rankingEngine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend 执行完整的两阶段推荐。
//
// 校验顺序（快速失败，第一条违规即返回）：
//  1. topKRetrieve ∈ [1, 目录大小]，否则 INVALID_PARAMETER
//  2. topNFinal ∈ [1, topKRetrieve]，否则 INVALID_PARAMETER（不做隐式夹取）
//  3. userID 可解析，否则 USER_NOT_FOUND
func (s *Service) Recommend(ctx context.Context, userID int64, topKRetrieve, topNFinal int) (*Result, error) {
	if topKRetrieve <= 0 || topKRetrieve > s.store.Len() {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidParameter,
			fmt.Sprintf("top_k_retrieve must be in [1, %d], got %d", s.store.Len(), topKRetrieve))
	}
	if topNFinal <= 0 || topNFinal > topKRetrieve {
		return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidParameter,
			fmt.Sprintf("top_n_final must be in [1, %d], got %d", topKRetrieve, topNFinal))
	}

	userVec, prof, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.retrieval.Retrieve(ctx, userVec, topKRetrieve)
	if err != nil {
		return nil, err
	}

	if s.filter != nil {
		candidates, err = s.filter.Apply(ctx, s.store, candidates)
		if err != nil {
			return nil, core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInternalError,
				fmt.Sprintf("candidate filter failed: %v", err))
		}
	}

	ranked, err := s.ranking.Rank(ctx, userVec, candidates)
	if err != nil {
		return nil, err
	}

	// 精排输出已全序，截断后 Rank 天然保持 1..N 连续
	if len(ranked) > topNFinal {
		ranked = ranked[:topNFinal]
	}

	recs := make([]Recommendation, len(ranked))
	for i, r := range ranked {
		meta, err := s.store.MetadataOf(r.MovieID)
		if err != nil {
			return nil, fmt.Errorf("join metadata for movie %d: %w", r.MovieID, err)
		}
		recs[i] = Recommendation{
			Rank:           r.Rank,
			MovieID:        r.MovieID,
			Title:          meta.Title,
			Genres:         meta.Genres,
			Year:           meta.Year,
			RankingScore:   r.RankingScore,
			RetrievalScore: r.RetrievalScore,
		}
	}

	return &Result{
		UserID:          userID,
		Gender:          prof.Gender,
		Age:             prof.Age,
		Occupation:      prof.Occupation,
		Recommendations: recs,
	}, nil
}
