package model

import (
	"context"
	"math"
	"testing"

	"github.com/goccy/go-json"

	"github.com/rushteam/recserve/core"
)

// weightsJSON 构造一份层权重 JSON，测试用。
func weightsJSON(t *testing.T, layers []layerWeights) []byte {
	t.Helper()
	data, err := json.Marshal(struct {
		Layers []layerWeights `json:"layers"`
	}{layers})
	if err != nil {
		t.Fatalf("marshal weights: %v", err)
	}
	return data
}

func TestNewMLP_Validation(t *testing.T) {
	tests := []struct {
		name    string
		layers  []layerWeights
		wantErr bool
	}{
		{
			name: "valid two layer net",
			layers: []layerWeights{
				{Weights: [][]float64{{1, 0}, {0, 1}}, Biases: []float64{0, 0}},
				{Weights: [][]float64{{1, 1}}, Biases: []float64{0}},
			},
		},
		{
			name: "bias count mismatch",
			layers: []layerWeights{
				{Weights: [][]float64{{1, 0}}, Biases: []float64{0, 0}},
			},
			wantErr: true,
		},
		{
			name: "ragged weight matrix",
			layers: []layerWeights{
				{Weights: [][]float64{{1, 0}, {1}}, Biases: []float64{0, 0}},
			},
			wantErr: true,
		},
		{
			name: "layer dims do not chain",
			layers: []layerWeights{
				{Weights: [][]float64{{1, 0}, {0, 1}}, Biases: []float64{0, 0}},
				{Weights: [][]float64{{1, 1, 1}}, Biases: []float64{0}},
			},
			wantErr: true,
		},
		{
			name:    "no layers",
			layers:  nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMLP(weightsJSON(t, tt.layers))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMLP() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !core.IsArtifactLoad(err) {
				t.Fatalf("NewMLP() error code = %v, want ARTIFACT_LOAD", err)
			}
		})
	}
}

func TestMLP_Score(t *testing.T) {
	// 单隐层网络：hidden = relu(W1·x)，out = W2·hidden + b2
	mlp, err := NewMLP(weightsJSON(t, []layerWeights{
		{Weights: [][]float64{{1, 0}, {0, -1}}, Biases: []float64{0, 0}},
		{Weights: [][]float64{{2, 3}}, Biases: []float64{0.5}},
	}))
	if err != nil {
		t.Fatalf("NewMLP() error = %v", err)
	}

	// x = [1, 1] -> hidden = [relu(1), relu(-1)] = [1, 0] -> out = 2*1 + 0.5 = 2.5
	got, err := mlp.Score(context.Background(), []float64{1, 1})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if math.Abs(got-2.5) > 1e-12 {
		t.Errorf("Score() = %v, want 2.5", got)
	}

	// 维度不符必须报 SCORE_ERROR
	if _, err := mlp.Score(context.Background(), []float64{1}); !core.IsScoreError(err) {
		t.Errorf("Score() with bad dim error = %v, want SCORE_ERROR", err)
	}
}

func TestTower_Embed(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"embeddings": map[string][]float64{
			"gender:F":     {1, 0},
			"age:25":       {0, 1},
			"occupation:4": {1, 1},
		},
		"layers": []layerWeights{
			// 6 输入 -> 2 输出，恒等取前两维
			{Weights: [][]float64{
				{1, 0, 0, 0, 0, 0},
				{0, 1, 0, 0, 0, 0},
			}, Biases: []float64{0, 0}},
		},
	})
	if err != nil {
		t.Fatalf("marshal tower: %v", err)
	}

	tower, err := NewTower(raw, 2)
	if err != nil {
		t.Fatalf("NewTower() error = %v", err)
	}

	vec, err := tower.Embed(context.Background(), core.UserAttributes{Gender: "F", Age: 25, Occupation: 4})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if norm := core.L2Norm(vec); math.Abs(norm-1.0) > 1e-9 {
		t.Errorf("Embed() norm = %v, want 1.0", norm)
	}

	// 未知的属性编码不是零向量，而是显式错误
	_, err = tower.Embed(context.Background(), core.UserAttributes{Gender: "X", Age: 25, Occupation: 4})
	if !core.IsScoreError(err) {
		t.Errorf("Embed() with unknown code error = %v, want SCORE_ERROR", err)
	}
}

func TestTower_OutputDimMismatch(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"embeddings": map[string][]float64{"gender:F": {1}},
		"layers": []layerWeights{
			{Weights: [][]float64{{1}}, Biases: []float64{0}},
		},
	})
	if err != nil {
		t.Fatalf("marshal tower: %v", err)
	}
	if _, err := NewTower(raw, 64); !core.IsArtifactLoad(err) {
		t.Errorf("NewTower() error = %v, want ARTIFACT_LOAD", err)
	}
}
