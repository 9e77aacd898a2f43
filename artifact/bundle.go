// Package artifact 定义离线训练管线产出的只读产物包格式。
//
// 产物包是单个 bbolt 文件，包含四个 bucket：
//   - item_vectors: movie_id (uint64 大端) -> JSON []float64（D 维单位向量）
//   - item_meta:    movie_id (uint64 大端) -> JSON 元信息（标题/类型/年份）
//   - users:        user_id  (uint64 大端) -> JSON 离散属性（性别/年龄/职业）
//   - model:        "tower" / "ranker"     -> JSON 模型权重
//
// 服务进程只在启动时读取一次；进程运行期间产物包不再被触碰。
package artifact

import (
	"encoding/binary"
	"fmt"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/rushteam/recserve/core"
)

var (
	bucketItemVectors = []byte("item_vectors")
	bucketItemMeta    = []byte("item_meta")
	bucketUsers       = []byte("users")
	bucketModel       = []byte("model")

	keyTower  = []byte("tower")
	keyRanker = []byte("ranker")
)

// itemMetaRecord 是 item_meta bucket 的持久化形式。
type itemMetaRecord struct {
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
	Year   int      `json:"year"`
}

// userRecord 是 users bucket 的持久化形式。
type userRecord struct {
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	Occupation int    `json:"occupation"`
}

// Bundle 是已打开的产物包句柄。只读。
type Bundle struct {
	db *bbolt.DB
}

// Open 以只读方式打开产物包并校验 bucket 结构。
func Open(path string) (*Bundle, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
			fmt.Sprintf("open artifact bundle %s: %v", path, err))
	}

	err = db.View(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketItemVectors, bucketItemMeta, bucketUsers, bucketModel} {
			if tx.Bucket(b) == nil {
				return core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
					fmt.Sprintf("artifact bundle missing bucket %q", b))
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bundle{db: db}, nil
}

// Close 关闭产物包。启动加载完成后即可关闭。
func (b *Bundle) Close() error {
	return b.db.Close()
}

// ItemVectors 读取全部物品向量。
func (b *Bundle) ItemVectors() (map[int64][]float64, error) {
	vectors := make(map[int64][]float64)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketItemVectors).ForEach(func(k, v []byte) error {
			id, err := decodeID(k)
			if err != nil {
				return err
			}
			var vec []float64
			if err := json.Unmarshal(v, &vec); err != nil {
				return core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
					fmt.Sprintf("decode vector for movie %d: %v", id, err))
			}
			vectors[id] = vec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// ItemMetadata 读取全部物品元信息。
func (b *Bundle) ItemMetadata() (map[int64]core.ItemMetadata, error) {
	meta := make(map[int64]core.ItemMetadata)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketItemMeta).ForEach(func(k, v []byte) error {
			id, err := decodeID(k)
			if err != nil {
				return err
			}
			var rec itemMetaRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
					fmt.Sprintf("decode metadata for movie %d: %v", id, err))
			}
			meta[id] = core.ItemMetadata{
				MovieID: id,
				Title:   rec.Title,
				Genres:  rec.Genres,
				Year:    rec.Year,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// Users 读取全部用户属性表。
func (b *Bundle) Users() (map[int64]core.UserAttributes, error) {
	users := make(map[int64]core.UserAttributes)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketUsers).ForEach(func(k, v []byte) error {
			id, err := decodeID(k)
			if err != nil {
				return err
			}
			var rec userRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return core.NewDomainError(core.ModuleProfile, core.ErrorCodeArtifactLoad,
					fmt.Sprintf("decode attributes for user %d: %v", id, err))
			}
			users[id] = core.UserAttributes{
				Gender:     rec.Gender,
				Age:        rec.Age,
				Occupation: rec.Occupation,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ModelWeights 返回 tower / ranker 两份模型权重的原始 JSON。
// 解析由 model 包负责，artifact 包不感知权重 schema。
func (b *Bundle) ModelWeights() (tower, ranker []byte, err error) {
	err = b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketModel)
		t := bucket.Get(keyTower)
		r := bucket.Get(keyRanker)
		if t == nil || r == nil {
			return core.NewDomainError(core.ModuleModel, core.ErrorCodeArtifactLoad,
				"artifact bundle missing model weights (tower/ranker)")
		}
		tower = append([]byte(nil), t...)
		ranker = append([]byte(nil), r...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return tower, ranker, nil
}

func decodeID(key []byte) (int64, error) {
	if len(key) != 8 {
		return 0, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeArtifactLoad,
			fmt.Sprintf("malformed bundle key: %d bytes, want 8", len(key)))
	}
	return int64(binary.BigEndian.Uint64(key)), nil
}

func encodeID(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}
