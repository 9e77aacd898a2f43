// Package filter 提供召回与精排之间的候选过滤，
// 用 CEL (Common Expression Language) 表达式按部署配置裁剪候选集。
//
// 表达式变量：
//   - movie_id: int
//   - title:    string
//   - genres:   list<string>
//   - year:     int
//   - score:    double（检索分数）
//
// 示例：
//   - `year >= 2000`
//   - `"Comedy" in genres && score > 0.3`
//   - `!(title.contains("Sequel"))`
//
// 表达式为真的候选保留。表达式在启动期编译一次，求值线程安全。
package filter

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/recserve/catalog"
	"github.com/rushteam/recserve/core"
)

// CandidateFilter 是已编译的候选过滤器。
type CandidateFilter struct {
	expr string
	prg  cel.Program
}

// New 编译过滤表达式。表达式必须产出 bool。
func New(expr string) (*CandidateFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("movie_id", cel.IntType),
		cel.Variable("title", cel.StringType),
		cel.Variable("genres", cel.ListType(cel.StringType)),
		cel.Variable("year", cel.IntType),
		cel.Variable("score", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter expression %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter expression %q must produce bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter program: %w", err)
	}

	return &CandidateFilter{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式（日志/观测用）。
func (f *CandidateFilter) Expr() string { return f.expr }

// Apply 按表达式裁剪候选集，保持输入顺序。求值错误按请求级错误上抛。
func (f *CandidateFilter) Apply(ctx context.Context, store *catalog.Store, candidates []core.CandidateScore) ([]core.CandidateScore, error) {
	out := make([]core.CandidateScore, 0, len(candidates))
	for _, c := range candidates {
		meta, err := store.MetadataOf(c.MovieID)
		if err != nil {
			return nil, fmt.Errorf("filter candidate %d: %w", c.MovieID, err)
		}

		val, _, err := f.prg.ContextEval(ctx, map[string]any{
			"movie_id": c.MovieID,
			"title":    meta.Title,
			"genres":   meta.Genres,
			"year":     meta.Year,
			"score":    c.Retrieval,
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate filter for movie %d: %w", c.MovieID, err)
		}
		keep, ok := val.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("filter for movie %d produced %T, want bool", c.MovieID, val.Value())
		}
		if keep {
			out = append(out, c)
		}
	}
	return out, nil
}
