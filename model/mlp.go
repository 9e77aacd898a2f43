// Package model 实现服务端消费的两份模型产物的纯 Go 前向推理：
// 用户塔（TowerModel）与排序打分器（MLP）。
//
// 本包只做推理，不做训练；权重由离线管线训练后写入产物包，
// 加载后不可变。同样的输入永远产出同样的输出，整条链路无随机性。
package model

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/recserve/core"
)

// layerWeights 是单层全连接的权重持久化形式。
// Weights[neuron][input] = weight，Biases[neuron] = bias。
type layerWeights struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// MLP 是多层全连接网络：隐层 ReLU，输出层线性。
//
// 作为 core.RankScorer 使用时，输入是 [user ‖ item] 拼接向量（2D 维），
// 输出是未裁剪的预测评分——名义域通常在 [1,5]，越界分数原样透传。
type MLP struct {
	layers   []layerWeights
	inputDim int
}

// NewMLP 从产物包中的 JSON 权重构建 MLP，并校验层间维度衔接。
// schema: {"layers":[{"weights":[[...]],"biases":[...]}, ...]}
func NewMLP(raw []byte) (*MLP, error) {
	var spec struct {
		Layers []layerWeights `json:"layers"`
	}
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
			fmt.Sprintf("decode mlp weights: %v", err))
	}
	if len(spec.Layers) == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
			"mlp weights contain no layers")
	}

	inputDim, err := validateLayers(spec.Layers)
	if err != nil {
		return nil, err
	}

	return &MLP{layers: spec.Layers, inputDim: inputDim}, nil
}

// validateLayers 校验每层权重矩阵形状一致且层间输入输出维度衔接。
// 返回网络的输入维度。
func validateLayers(layers []layerWeights) (int, error) {
	inputDim := 0
	prevOut := 0
	for i, layer := range layers {
		if len(layer.Weights) == 0 || len(layer.Weights) != len(layer.Biases) {
			return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
				fmt.Sprintf("layer %d: %d weight rows vs %d biases", i, len(layer.Weights), len(layer.Biases)))
		}
		in := len(layer.Weights[0])
		for _, row := range layer.Weights {
			if len(row) != in {
				return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
					fmt.Sprintf("layer %d: ragged weight matrix", i))
			}
		}
		if i == 0 {
			inputDim = in
		} else if in != prevOut {
			return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
				fmt.Sprintf("layer %d: input dim %d does not match previous output dim %d", i, in, prevOut))
		}
		prevOut = len(layer.Weights)
	}
	return inputDim, nil
}

// InputDim 实现 core.RankScorer 接口。
func (m *MLP) InputDim() int { return m.inputDim }

// OutputDim 返回网络输出维度。
func (m *MLP) OutputDim() int {
	return len(m.layers[len(m.layers)-1].Weights)
}

// Score 实现 core.RankScorer 接口：前向传播取标量输出。
func (m *MLP) Score(_ context.Context, features []float64) (float64, error) {
	if len(features) != m.inputDim {
		return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeScoreError,
			fmt.Sprintf("score input dim %d, want %d", len(features), m.inputDim))
	}
	if m.OutputDim() != 1 {
		return 0, core.NewDomainError(core.ModuleModel, core.ErrorCodeScoreError,
			fmt.Sprintf("rank model output dim %d, want 1", m.OutputDim()))
	}
	out := m.forward(features)
	return out[0], nil
}

// Forward 执行前向传播并返回输出层向量（用户塔取 D 维嵌入时使用）。
func (m *MLP) Forward(features []float64) ([]float64, error) {
	if len(features) != m.inputDim {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeScoreError,
			fmt.Sprintf("forward input dim %d, want %d", len(features), m.inputDim))
	}
	return m.forward(features), nil
}

func (m *MLP) forward(input []float64) []float64 {
	cur := input
	for li, layer := range m.layers {
		next := make([]float64, len(layer.Weights))
		for j, row := range layer.Weights {
			sum := layer.Biases[j]
			for k, w := range row {
				sum += w * cur[k]
			}
			// 隐层 ReLU，输出层线性
			if li < len(m.layers)-1 && sum < 0 {
				sum = 0
			}
			next[j] = sum
		}
		cur = next
	}
	return cur
}

var _ core.RankScorer = (*MLP)(nil)
