package artifact

import (
	"fmt"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/rushteam/recserve/core"
)

// Source 是写产物包时的输入集合，由 `recserve pack` 或测试构造。
type Source struct {
	Vectors map[int64][]float64
	Meta    map[int64]core.ItemMetadata
	Users   map[int64]core.UserAttributes
	Tower   []byte // JSON 模型权重
	Ranker  []byte // JSON 模型权重
}

// Write 将 Source 写为一个新的产物包文件。
// 目标文件已存在时会被覆盖写入相同 bucket（与离线管线的全量重建语义一致）。
func Write(path string, src Source) error {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return fmt.Errorf("open bundle for write: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		vectors, err := tx.CreateBucketIfNotExists(bucketItemVectors)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketItemVectors, err)
		}
		meta, err := tx.CreateBucketIfNotExists(bucketItemMeta)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketItemMeta, err)
		}
		users, err := tx.CreateBucketIfNotExists(bucketUsers)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketUsers, err)
		}
		model, err := tx.CreateBucketIfNotExists(bucketModel)
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", bucketModel, err)
		}

		for id, vec := range src.Vectors {
			data, err := json.Marshal(vec)
			if err != nil {
				return fmt.Errorf("encode vector %d: %w", id, err)
			}
			if err := vectors.Put(encodeID(id), data); err != nil {
				return err
			}
		}
		for id, m := range src.Meta {
			data, err := json.Marshal(itemMetaRecord{Title: m.Title, Genres: m.Genres, Year: m.Year})
			if err != nil {
				return fmt.Errorf("encode metadata %d: %w", id, err)
			}
			if err := meta.Put(encodeID(id), data); err != nil {
				return err
			}
		}
		for id, u := range src.Users {
			data, err := json.Marshal(userRecord{Gender: u.Gender, Age: u.Age, Occupation: u.Occupation})
			if err != nil {
				return fmt.Errorf("encode user %d: %w", id, err)
			}
			if err := users.Put(encodeID(id), data); err != nil {
				return err
			}
		}
		if len(src.Tower) > 0 {
			if err := model.Put(keyTower, src.Tower); err != nil {
				return err
			}
		}
		if len(src.Ranker) > 0 {
			if err := model.Put(keyRanker, src.Ranker); err != nil {
				return err
			}
		}
		return nil
	})
}
