package core

import "strings"

// ItemMetadata 是物品（电影）的静态元信息。
// 与物品向量共用同一个 MovieID，1:1 关系，加载后不可变。
type ItemMetadata struct {
	MovieID int64
	Title   string
	Genres  []string
	Year    int
}

// GenresString 返回用 '|' 连接的类型串（MovieLens 原始格式，前端按 '|' 切分）。
func (m ItemMetadata) GenresString() string {
	return JoinGenres(m.Genres)
}

// JoinGenres 把类型列表连接为线上协议使用的 '|' 分隔串。
func JoinGenres(genres []string) string {
	return strings.Join(genres, "|")
}

// UserAttributes 是用户的离散属性（MovieLens 编码）。
//
// 维度说明：
//   - Gender: "M" / "F"
//   - Age: 年龄分桶编码（1, 18, 25, 35, 45, 50, 56）
//   - Occupation: 职业编码（0-20）
type UserAttributes struct {
	Gender     string
	Age        int
	Occupation int
}

// UserProfile 是用户画像：ID + 离散属性。只读，来源于外部查找表。
type UserProfile struct {
	UserID int64
	UserAttributes
}

// CandidateScore 是召回阶段的候选结果：物品 ID + 检索分数（越高越相似）。
// 请求内临时数据，不跨请求缓存。
type CandidateScore struct {
	MovieID   int64
	Retrieval float64
}

// RankedRecommendation 是排序阶段的最终单元。
//
// 约束：
//   - Rank 从 1 开始连续递增
//   - RankingScore 沿 Rank 非递增
//   - RetrievalScore 透传自召回阶段，用于观测
type RankedRecommendation struct {
	Rank           int
	MovieID        int64
	RankingScore   float64
	RetrievalScore float64
}
