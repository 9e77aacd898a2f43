// recserve 是双阶段电影推荐服务的命令行入口。
//
// 子命令：
//   - serve: 加载产物包并启动 HTTP 推荐服务
//   - pack:  将离线导出的 JSON 文件打成产物包（bbolt 文件）
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recserve",
	Short: "Two-stage movie recommendation serving system",
	Long: `recserve serves movie recommendations from offline-trained artifacts.

The pipeline is retrieval (dot product over the item catalog) followed by
ranking (MLP over the concatenated user/item vectors).

Example usage:
  recserve pack --out bundle.db --vectors vectors.json --meta movies.json --users users.json --tower tower.json --ranker ranker.json
  recserve serve --config recserve.yaml`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
