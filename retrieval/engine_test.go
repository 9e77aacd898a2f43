package retrieval

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/rushteam/recserve/catalog"
	"github.com/rushteam/recserve/core"
)

func testStore(t *testing.T, dim int, vectors map[int64][]float64) *catalog.Store {
	t.Helper()
	meta := make(map[int64]core.ItemMetadata, len(vectors))
	for id := range vectors {
		meta[id] = core.ItemMetadata{MovieID: id, Title: fmt.Sprintf("Movie %d", id), Genres: []string{"Drama"}, Year: 2000}
	}
	s, err := catalog.New(dim, vectors, meta)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return s
}

func TestRetrieve_OrdersByDotProduct(t *testing.T) {
	// 目录：A=[1,0] B=[0,1]；用户=[0.6,0.8] -> A=0.6, B=0.8 -> 顺序 [B, A]
	store := testStore(t, 2, map[int64][]float64{
		1: {1, 0}, // A
		2: {0, 1}, // B
	})
	e := New(store)

	got, err := e.Retrieve(context.Background(), []float64{0.6, 0.8}, 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Retrieve() len = %d, want 2", len(got))
	}
	if got[0].MovieID != 2 || got[1].MovieID != 1 {
		t.Errorf("Retrieve() order = [%d %d], want [2 1]", got[0].MovieID, got[1].MovieID)
	}
	if math.Abs(got[0].Retrieval-0.8) > 1e-9 || math.Abs(got[1].Retrieval-0.6) > 1e-9 {
		t.Errorf("Retrieve() scores = [%v %v], want [0.8 0.6]", got[0].Retrieval, got[1].Retrieval)
	}
}

func TestRetrieve_ParameterValidation(t *testing.T) {
	store := testStore(t, 2, map[int64][]float64{1: {1, 0}, 2: {0, 1}})
	e := New(store)
	user := []float64{1, 0}

	tests := []struct {
		name string
		k    int
	}{
		{name: "k is zero", k: 0},
		{name: "k is negative", k: -5},
		{name: "k exceeds catalog size", k: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Retrieve(context.Background(), user, tt.k); !core.IsInvalidParameter(err) {
				t.Errorf("Retrieve(k=%d) error = %v, want INVALID_PARAMETER", tt.k, err)
			}
		})
	}

	if _, err := e.Retrieve(context.Background(), []float64{1, 0, 0}, 1); !core.IsInvalidParameter(err) {
		t.Errorf("Retrieve() with wrong user dim error = %v, want INVALID_PARAMETER", err)
	}
}

func TestRetrieve_TieBreakByAscendingID(t *testing.T) {
	// 三个物品向量一致 -> 分数全同，顺序必须是 MovieID 升序
	store := testStore(t, 2, map[int64][]float64{
		30: {1, 0},
		10: {1, 0},
		20: {1, 0},
	})
	e := New(store)

	got, err := e.Retrieve(context.Background(), []float64{1, 0}, 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	want := []int64{10, 20, 30}
	for i, c := range got {
		if c.MovieID != want[i] {
			t.Fatalf("Retrieve() ids = %v, want %v", ids(got), want)
		}
	}
}

func TestRetrieve_NoDuplicates_DescendingOrder(t *testing.T) {
	vectors := make(map[int64][]float64)
	for i := int64(1); i <= 500; i++ {
		angle := float64(i) / 500 * math.Pi / 2
		vectors[i] = []float64{math.Cos(angle), math.Sin(angle)}
	}
	store := testStore(t, 2, vectors)
	e := New(store, WithShards(4))

	const k = 50
	got, err := e.Retrieve(context.Background(), []float64{0, 1}, k)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != k {
		t.Fatalf("Retrieve() len = %d, want %d", len(got), k)
	}

	seen := make(map[int64]bool, k)
	for i, c := range got {
		if seen[c.MovieID] {
			t.Fatalf("duplicate movie %d in candidates", c.MovieID)
		}
		seen[c.MovieID] = true
		if i > 0 && got[i-1].Retrieval < c.Retrieval {
			t.Fatalf("scores not descending at %d: %v < %v", i, got[i-1].Retrieval, c.Retrieval)
		}
	}
}

func TestRetrieve_ShardedMatchesSingle(t *testing.T) {
	vectors := make(map[int64][]float64)
	for i := int64(1); i <= 300; i++ {
		angle := float64(i*7%300) / 300 * 2 * math.Pi
		vectors[i] = []float64{math.Cos(angle), math.Sin(angle)}
	}
	store := testStore(t, 2, vectors)
	user := []float64{0.6, 0.8}

	single, err := New(store, WithShards(1)).Retrieve(context.Background(), user, 20)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	sharded, err := New(store, WithShards(4)).Retrieve(context.Background(), user, 20)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	for i := range single {
		if single[i] != sharded[i] {
			t.Fatalf("shard count changed result at %d: %+v vs %+v", i, single[i], sharded[i])
		}
	}
}

func TestRetrieve_Cancellation(t *testing.T) {
	vectors := make(map[int64][]float64)
	for i := int64(1); i <= 100; i++ {
		vectors[i] = []float64{1, 0}
	}
	store := testStore(t, 2, vectors)
	e := New(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Retrieve(ctx, []float64{1, 0}, 10); err == nil {
		t.Error("Retrieve() with cancelled ctx: want error, got nil")
	}
}

func ids(cs []core.CandidateScore) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.MovieID
	}
	return out
}
