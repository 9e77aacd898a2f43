package retrieval

import (
	"container/heap"
	"sort"

	"github.com/rushteam/recserve/core"
)

// selectTopK 用容量为 k 的小根堆做部分排序（O(N·log k)，不做全量排序）。
// 堆顶是"最差"候选：分数更低，或同分但 MovieID 更大。
func selectTopK(ids []int64, scores []float64, k int) []core.CandidateScore {
	h := &candidateHeap{}
	heap.Init(h)

	for i, id := range ids {
		c := core.CandidateScore{MovieID: id, Retrieval: scores[i]}
		if h.Len() < k {
			heap.Push(h, c)
			continue
		}
		if worseThan((*h)[0], c) {
			(*h)[0] = c
			heap.Fix(h, 0)
		}
	}

	out := make([]core.CandidateScore, h.Len())
	copy(out, *h)
	// 降序分数，同分按 MovieID 升序
	sort.Slice(out, func(i, j int) bool {
		if out[i].Retrieval != out[j].Retrieval {
			return out[i].Retrieval > out[j].Retrieval
		}
		return out[i].MovieID < out[j].MovieID
	})
	return out
}

// worseThan 判断 a 是否比 b 更差（排位更靠后）。
func worseThan(a, b core.CandidateScore) bool {
	if a.Retrieval != b.Retrieval {
		return a.Retrieval < b.Retrieval
	}
	return a.MovieID > b.MovieID
}

type candidateHeap []core.CandidateScore

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return worseThan(h[i], h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(core.CandidateScore)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
