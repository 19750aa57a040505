package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound：快照不存在
var ErrNotFound = errors.New("snapshot not found")

// Driver：快照存储后端类型
type Driver string

const (
	DriverFS Driver = "fs"
	DriverS3 Driver = "s3"
)

// Store：快照文件的最小存储抽象；键即快照文件名
// 约束：Put 为整文件覆盖写；List 只返回 .geojson 键；Get 对缺失键返回 ErrNotFound
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Driver() Driver
}

// 文档注释：按 SNAPSHOT_DRIVER 打开存储后端
// 约束：空或 fs 使用 SNAPSHOT_DIR（默认 data/output）；s3 读取 SNAPSHOT_S3_*；其余值报错。
func OpenFromEnv(ctx context.Context) (Store, error) {
	switch Driver(strings.ToLower(os.Getenv("SNAPSHOT_DRIVER"))) {
	case "", DriverFS:
		dir := os.Getenv("SNAPSHOT_DIR")
		if dir == "" {
			dir = "data/output"
		}
		return NewFSStore(dir), nil
	case DriverS3:
		return OpenS3FromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown SNAPSHOT_DRIVER %q", os.Getenv("SNAPSHOT_DRIVER"))
	}
}
