// Package recserve 是一个双阶段电影推荐服务（Recommendation Serving）。
//
// 设计要点：
// - 两阶段链路: 召回（目录内积扫描取 Top-K）→ 精排（MLP 对候选重打分取 Top-N）
// - 产物驱动: 全部向量/元信息/模型权重来自离线训练产物包，启动时一次性加载校验
// - 确定性: 相同产物 + 相同请求 → 逐字节相同的响应（分数并列按 movie_id 升序）
package recserve

import "github.com/rushteam/recserve/recommend"

// 轻量 facade：便于用户直接 import "recserve" 使用核心抽象。
type Service = recommend.Service
type Recommendation = recommend.Recommendation
type Result = recommend.Result
