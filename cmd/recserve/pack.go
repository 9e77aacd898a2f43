package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rushteam/recserve/artifact"
	"github.com/rushteam/recserve/core"
)

var packFlags struct {
	out     string
	vectors string
	meta    string
	users   string
	tower   string
	ranker  string
}

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Build an artifact bundle from offline-exported JSON files",
	Long: `pack assembles a serving bundle (bbolt file) from the JSON files the
offline training pipeline exports:

  vectors.json  {"1": [0.01, ...], ...}            movie_id -> D-dim unit vector
  movies.json   {"1": {"title": "Toy Story (1995)", "genres": "Animation|Comedy", "year": 1995}, ...}
  users.json    {"1": {"gender": "F", "age": 1, "occupation": 10}, ...}
  tower.json    user tower weights (embeddings + layers)
  ranker.json   ranking MLP weights (layers)`,
	RunE: runPack,
}

func init() {
	packCmd.Flags().StringVarP(&packFlags.out, "out", "o", "bundle.db", "output bundle path")
	packCmd.Flags().StringVar(&packFlags.vectors, "vectors", "", "item vectors JSON file")
	packCmd.Flags().StringVar(&packFlags.meta, "meta", "", "movie metadata JSON file")
	packCmd.Flags().StringVar(&packFlags.users, "users", "", "user attributes JSON file")
	packCmd.Flags().StringVar(&packFlags.tower, "tower", "", "user tower weights JSON file")
	packCmd.Flags().StringVar(&packFlags.ranker, "ranker", "", "ranking model weights JSON file")
	for _, name := range []string{"vectors", "meta", "users", "tower", "ranker"} {
		_ = packCmd.MarkFlagRequired(name)
	}
	rootCmd.AddCommand(packCmd)
}

// movieFile 是离线导出的电影元信息格式，genres 为竖线拼接串。
type movieFile struct {
	Title  string `json:"title"`
	Genres string `json:"genres"`
	Year   int    `json:"year"`
}

type userFile struct {
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	Occupation int    `json:"occupation"`
}

func runPack(_ *cobra.Command, _ []string) error {
	var rawVectors map[string][]float64
	if err := readJSONFile(packFlags.vectors, &rawVectors); err != nil {
		return err
	}
	vectors := make(map[int64][]float64, len(rawVectors))
	for key, vec := range rawVectors {
		id, err := parseID(packFlags.vectors, key)
		if err != nil {
			return err
		}
		vectors[id] = vec
	}

	var rawMeta map[string]movieFile
	if err := readJSONFile(packFlags.meta, &rawMeta); err != nil {
		return err
	}
	meta := make(map[int64]core.ItemMetadata, len(rawMeta))
	for key, m := range rawMeta {
		id, err := parseID(packFlags.meta, key)
		if err != nil {
			return err
		}
		meta[id] = core.ItemMetadata{
			MovieID: id,
			Title:   m.Title,
			Genres:  strings.Split(m.Genres, "|"),
			Year:    m.Year,
		}
	}

	var rawUsers map[string]userFile
	if err := readJSONFile(packFlags.users, &rawUsers); err != nil {
		return err
	}
	users := make(map[int64]core.UserAttributes, len(rawUsers))
	for key, u := range rawUsers {
		id, err := parseID(packFlags.users, key)
		if err != nil {
			return err
		}
		users[id] = core.UserAttributes{Gender: u.Gender, Age: u.Age, Occupation: u.Occupation}
	}

	tower, err := os.ReadFile(packFlags.tower)
	if err != nil {
		return fmt.Errorf("read tower weights: %w", err)
	}
	ranker, err := os.ReadFile(packFlags.ranker)
	if err != nil {
		return fmt.Errorf("read ranker weights: %w", err)
	}

	src := artifact.Source{
		Vectors: vectors,
		Meta:    meta,
		Users:   users,
		Tower:   tower,
		Ranker:  ranker,
	}
	if err := artifact.Write(packFlags.out, src); err != nil {
		return err
	}

	fmt.Printf("packed %d movies, %d users into %s\n", len(vectors), len(users), packFlags.out)
	return nil
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func parseID(path, key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: key %q is not an integer id", path, key)
	}
	return id, nil
}
