package catalog

import (
	"math"
	"testing"

	"github.com/rushteam/recserve/core"
)

func metaFor(ids ...int64) map[int64]core.ItemMetadata {
	meta := make(map[int64]core.ItemMetadata, len(ids))
	for _, id := range ids {
		meta[id] = core.ItemMetadata{MovieID: id, Title: "Movie", Genres: []string{"Drama"}, Year: 2000}
	}
	return meta
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		dim     int
		vectors map[int64][]float64
		meta    map[int64]core.ItemMetadata
		wantErr bool
	}{
		{
			name:    "valid unit vectors",
			dim:     2,
			vectors: map[int64][]float64{1: {1, 0}, 2: {0, 1}},
			meta:    metaFor(1, 2),
		},
		{
			name:    "dimension mismatch rejected",
			dim:     2,
			vectors: map[int64][]float64{1: {1, 0, 0}},
			meta:    metaFor(1),
			wantErr: true,
		},
		{
			name:    "norm inside renormalizable bound is accepted",
			dim:     2,
			vectors: map[int64][]float64{1: {0.9, 0}}, // norm 0.9 -> renormalized
			meta:    metaFor(1),
		},
		{
			name:    "norm outside loose bound rejected",
			dim:     2,
			vectors: map[int64][]float64{1: {10, 0}},
			meta:    metaFor(1),
			wantErr: true,
		},
		{
			name:    "orphaned vector rejected",
			dim:     2,
			vectors: map[int64][]float64{1: {1, 0}, 2: {0, 1}},
			meta:    metaFor(1),
			wantErr: true,
		},
		{
			name:    "orphaned metadata rejected",
			dim:     2,
			vectors: map[int64][]float64{1: {1, 0}},
			meta:    metaFor(1, 2),
			wantErr: true,
		},
		{
			name:    "empty catalog rejected",
			dim:     2,
			vectors: map[int64][]float64{},
			meta:    metaFor(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.dim, tt.vectors, tt.meta)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !core.IsArtifactLoad(err) {
				t.Fatalf("New() error code = %v, want ARTIFACT_LOAD", err)
			}
		})
	}
}

func TestStore_UnitNormInvariant(t *testing.T) {
	vectors := map[int64][]float64{
		10: {0.9, 0},   // 需要重归一化
		20: {0, 1},     // 已经是单位向量
		30: {0.6, 0.8}, // 已经是单位向量
	}
	s, err := New(2, vectors, metaFor(10, 20, 30))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, id := range s.IDs() {
		vec, err := s.VectorOf(id)
		if err != nil {
			t.Fatalf("VectorOf(%d) error = %v", id, err)
		}
		if norm := core.L2Norm(vec); math.Abs(norm-1.0) > 1e-3 {
			t.Errorf("movie %d: norm = %v, want 1.0 ± 1e-3", id, norm)
		}
	}
}

func TestStore_Lookup(t *testing.T) {
	s, err := New(2, map[int64][]float64{5: {1, 0}, 3: {0, 1}}, metaFor(5, 3))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	// IDs 必须按 MovieID 升序
	ids := s.IDs()
	if ids[0] != 3 || ids[1] != 5 {
		t.Errorf("IDs() = %v, want [3 5]", ids)
	}

	if _, err := s.VectorOf(99); !core.IsNotFound(err) {
		t.Errorf("VectorOf(99) error = %v, want NOT_FOUND", err)
	}
	if _, err := s.MetadataOf(99); !core.IsNotFound(err) {
		t.Errorf("MetadataOf(99) error = %v, want NOT_FOUND", err)
	}

	m, err := s.MetadataOf(5)
	if err != nil {
		t.Fatalf("MetadataOf(5) error = %v", err)
	}
	if m.MovieID != 5 || m.GenresString() != "Drama" {
		t.Errorf("MetadataOf(5) = %+v", m)
	}
}

func TestStore_GenreCount(t *testing.T) {
	meta := map[int64]core.ItemMetadata{
		1: {MovieID: 1, Title: "A", Genres: []string{"Action", "Comedy"}},
		2: {MovieID: 2, Title: "B", Genres: []string{"Comedy", "Drama"}},
	}
	s, err := New(2, map[int64][]float64{1: {1, 0}, 2: {0, 1}}, meta)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := s.GenreCount(); got != 3 {
		t.Errorf("GenreCount() = %d, want 3", got)
	}
}
