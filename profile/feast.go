package profile

import (
	"context"
	"fmt"
	"time"

	feastsdk "github.com/feast-dev/feast/sdk/go"

	"github.com/rushteam/recserve/core"
)

// Feast 特征命名约定：user_profile 特征视图下的三个离散属性。
const (
	feastFeatureGender     = "user_profile:gender"
	feastFeatureAge        = "user_profile:age"
	feastFeatureOccupation = "user_profile:occupation"

	feastEntityUserID = "user_id"
)

// FeastSource 是基于 Feast 在线特征库的属性来源，
// 供用户属性表托管在特征平台而非产物包的部署形态使用。
//
// 工程特征：
//   - 实时性：好（gRPC 在线特征查询）
//   - 可用性：依赖外部 Feature Server，查询失败按请求级错误上抛
//   - 无法枚举用户全集，Count 恒为 0
type FeastSource struct {
	client  *feastsdk.GrpcClient
	project string
	timeout time.Duration
}

// NewFeastSource 连接 Feast Feature Server 并构建属性来源。
func NewFeastSource(host string, port int, project string) (*FeastSource, error) {
	if port == 0 {
		port = 6565 // Feast gRPC 默认端口
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("connect feast feature server %s:%d: %w", host, port, err)
	}
	return &FeastSource{
		client:  client,
		project: project,
		timeout: 2 * time.Second,
	}, nil
}

// Attributes 实现 AttributeSource 接口。
// 特征缺失（用户不在特征库）返回 USER_NOT_FOUND；传输失败返回包装后的原始错误。
func (s *FeastSource) Attributes(ctx context.Context, userID int64) (core.UserAttributes, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: []string{feastFeatureGender, feastFeatureAge, feastFeatureOccupation},
		Entities: []feastsdk.Row{
			{feastEntityUserID: feastsdk.Int64Val(userID)},
		},
		Project: s.project,
	})
	if err != nil {
		return core.UserAttributes{}, fmt.Errorf("feast get online features: %w", err)
	}

	rows := resp.Rows()
	if len(rows) != 1 {
		return core.UserAttributes{}, fmt.Errorf("feast returned %d rows, want 1", len(rows))
	}
	row := rows[0]

	gender := row[feastFeatureGender].GetStringVal()
	age := row[feastFeatureAge].GetInt64Val()
	occupation := row[feastFeatureOccupation].GetInt64Val()
	if gender == "" {
		return core.UserAttributes{}, core.NewDomainError(core.ModuleProfile, core.ErrorCodeUserNotFound,
			fmt.Sprintf("user %d not found in feature store", userID))
	}

	return core.UserAttributes{
		Gender:     gender,
		Age:        int(age),
		Occupation: int(occupation),
	}, nil
}

// Count 实现 AttributeSource 接口。Feast 无法枚举用户全集。
func (s *FeastSource) Count() int { return 0 }

// Close 关闭与 Feature Server 的连接。
func (s *FeastSource) Close() error { return s.client.Close() }

var _ AttributeSource = (*FeastSource)(nil)
