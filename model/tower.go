package model

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/recserve/core"
)

// TowerModel 是用户塔：离散属性 -> D 维嵌入向量。
//
// 核心流程：
//  1. 按 "gender:F" / "age:25" / "occupation:4" 键查嵌入表
//  2. 三段嵌入拼接后过全连接层，输出 D 维向量
//  3. L2 归一化（双塔内积等价余弦相似度的前提）
//
// 嵌入表和全连接权重都来自产物包，加载后不可变。
type TowerModel struct {
	embeddings map[string][]float64
	mlp        *MLP
	dim        int
}

// NewTower 从产物包中的 JSON 权重构建用户塔。
// schema: {"embeddings":{"gender:F":[...],...},"layers":[...]}
func NewTower(raw []byte, dim int) (*TowerModel, error) {
	var spec struct {
		Embeddings map[string][]float64 `json:"embeddings"`
		Layers     []layerWeights       `json:"layers"`
	}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
			fmt.Sprintf("decode tower weights: %v", err))
	}
	if len(spec.Embeddings) == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
			"tower weights contain no embedding table")
	}

	layersJSON, err := json.Marshal(struct {
		Layers []layerWeights `json:"layers"`
	}{spec.Layers})
	if err != nil {
		return nil, fmt.Errorf("re-encode tower layers: %w", err)
	}
	mlp, err := NewMLP(layersJSON)
	if err != nil {
		return nil, err
	}
	if mlp.OutputDim() != dim {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
			fmt.Sprintf("tower output dim %d, want %d", mlp.OutputDim(), dim))
	}

	return &TowerModel{
		embeddings: spec.Embeddings,
		mlp:        mlp,
		dim:        dim,
	}, nil
}

// Dim 实现 core.UserTower 接口。
func (t *TowerModel) Dim() int { return t.dim }

// Embed 实现 core.UserTower 接口。
// 属性编码在嵌入表中缺失时返回 SCORE_ERROR（产物不完整），不会默认为零向量。
func (t *TowerModel) Embed(_ context.Context, attrs core.UserAttributes) ([]float64, error) {
	keys := []string{
		"gender:" + attrs.Gender,
		"age:" + strconv.Itoa(attrs.Age),
		"occupation:" + strconv.Itoa(attrs.Occupation),
	}

	var input []float64
	for _, key := range keys {
		emb, ok := t.embeddings[key]
		if !ok {
			return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeScoreError,
				fmt.Sprintf("embedding table has no entry for %q", key))
		}
		input = append(input, emb...)
	}

	out, err := t.mlp.Forward(input)
	if err != nil {
		return nil, err
	}

	// 塔的输出不保证恰好单位范数，这里只做 L2 归一化；
	// 零向量无法归一化，视为打分失败。
	norm := core.L2Norm(out)
	if norm == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeScoreError,
			"tower produced a zero vector")
	}
	for i := range out {
		out[i] /= norm
	}
	return out, nil
}

var _ core.UserTower = (*TowerModel)(nil)
