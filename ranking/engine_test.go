package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rushteam/recserve/catalog"
	"github.com/rushteam/recserve/core"
)

// funcScorer 用任意函数充当打分器，测试用。
type funcScorer struct {
	dim int
	fn  func(features []float64) (float64, error)
}

func (s *funcScorer) InputDim() int { return s.dim }

func (s *funcScorer) Score(_ context.Context, features []float64) (float64, error) {
	return s.fn(features)
}

func testStore(t *testing.T, vectors map[int64][]float64) *catalog.Store {
	t.Helper()
	meta := make(map[int64]core.ItemMetadata, len(vectors))
	for id := range vectors {
		meta[id] = core.ItemMetadata{MovieID: id, Title: fmt.Sprintf("Movie %d", id), Genres: []string{"Drama"}, Year: 2000}
	}
	s, err := catalog.New(2, vectors, meta)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return s
}

func TestRank_PreservesCandidateSet(t *testing.T) {
	store := testStore(t, map[int64][]float64{1: {1, 0}, 2: {0, 1}, 3: {0.6, 0.8}})
	// item 向量第一维越大分越高
	e, err := New(store, &funcScorer{dim: 4, fn: func(f []float64) (float64, error) {
		return f[2], nil
	}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	in := []core.CandidateScore{{MovieID: 1, Retrieval: 0.3}, {MovieID: 2, Retrieval: 0.9}, {MovieID: 3, Retrieval: 0.5}}
	got, err := e.Rank(context.Background(), []float64{1, 0}, in)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}

	if len(got) != len(in) {
		t.Fatalf("Rank() len = %d, want %d", len(got), len(in))
	}
	seen := make(map[int64]bool)
	for _, r := range got {
		seen[r.MovieID] = true
	}
	for _, c := range in {
		if !seen[c.MovieID] {
			t.Errorf("movie %d dropped by ranking", c.MovieID)
		}
	}

	// f[2]：movie1=1.0, movie3=0.6, movie2=0.0
	wantOrder := []int64{1, 3, 2}
	for i, r := range got {
		if r.MovieID != wantOrder[i] {
			t.Fatalf("Rank() order = %v, want %v", movieIDs(got), wantOrder)
		}
		if r.Rank != i+1 {
			t.Errorf("Rank() rank[%d] = %d, want %d", i, r.Rank, i+1)
		}
	}
}

func TestRank_ReordersByScore(t *testing.T) {
	// rank score = 5 - |retrieval - 1|，对检索分数单调 -> 顺序保持 [B, A]
	store := testStore(t, map[int64][]float64{1: {1, 0}, 2: {0, 1}})
	byID := map[int64]float64{1: 0.6, 2: 0.8}
	var i int
	order := []int64{2, 1} // 候选按检索降序进入
	e, err := New(store, &funcScorer{dim: 4, fn: func(_ []float64) (float64, error) {
		id := order[i]
		i++
		ret := byID[id]
		return 5 - (1 - ret), nil
	}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := e.Rank(context.Background(), []float64{0.6, 0.8},
		[]core.CandidateScore{{MovieID: 2, Retrieval: 0.8}, {MovieID: 1, Retrieval: 0.6}})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if got[0].MovieID != 2 || got[0].Rank != 1 || got[1].MovieID != 1 || got[1].Rank != 2 {
		t.Errorf("Rank() = %+v, want [B=2 rank1, A=1 rank2]", got)
	}
}

func TestRank_TieBreaks(t *testing.T) {
	store := testStore(t, map[int64][]float64{1: {1, 0}, 2: {0, 1}, 3: {0.6, 0.8}})
	// 所有候选同一个排序分数
	e, err := New(store, &funcScorer{dim: 4, fn: func(_ []float64) (float64, error) {
		return 4.0, nil
	}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	in := []core.CandidateScore{
		{MovieID: 3, Retrieval: 0.5},
		{MovieID: 2, Retrieval: 0.9}, // 检索分最高 -> 第一
		{MovieID: 1, Retrieval: 0.5}, // 与 3 同检索分 -> ID 小者在前
	}
	got, err := e.Rank(context.Background(), []float64{1, 0}, in)
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	wantOrder := []int64{2, 1, 3}
	for i, r := range got {
		if r.MovieID != wantOrder[i] {
			t.Fatalf("Rank() order = %v, want %v", movieIDs(got), wantOrder)
		}
	}
}

func TestRank_OutOfRangeScorePassesThrough(t *testing.T) {
	store := testStore(t, map[int64][]float64{1: {1, 0}})
	e, err := New(store, &funcScorer{dim: 4, fn: func(_ []float64) (float64, error) {
		return 5.3, nil // 超出名义 [1,5] 域
	}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := e.Rank(context.Background(), []float64{1, 0}, []core.CandidateScore{{MovieID: 1, Retrieval: 0.8}})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if got[0].RankingScore != 5.3 {
		t.Errorf("RankingScore = %v, want 5.3 (unclipped)", got[0].RankingScore)
	}
}

func TestRank_ScorerFailure(t *testing.T) {
	store := testStore(t, map[int64][]float64{1: {1, 0}})
	e, err := New(store, &funcScorer{dim: 4, fn: func(_ []float64) (float64, error) {
		return 0, errors.New("backend unavailable")
	}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = e.Rank(context.Background(), []float64{1, 0}, []core.CandidateScore{{MovieID: 1, Retrieval: 0.8}})
	if !core.IsScoreError(err) {
		t.Errorf("Rank() error = %v, want SCORE_ERROR", err)
	}
}

func TestNew_InputDimMismatch(t *testing.T) {
	store := testStore(t, map[int64][]float64{1: {1, 0}})
	_, err := New(store, &funcScorer{dim: 3, fn: nil})
	if !core.IsArtifactLoad(err) {
		t.Errorf("New() error = %v, want ARTIFACT_LOAD", err)
	}
}

func movieIDs(rs []core.RankedRecommendation) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.MovieID
	}
	return out
}
