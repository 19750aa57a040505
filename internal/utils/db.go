// 包 utils：数据库、Redis 与 TLS 的环境变量驱动打开方式
package utils

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"redistrict/internal/logger"
)

func BuildPostgresDSNFromEnv() string {
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	user := envOr("PG_USER", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := envOr("PG_DB", "redistrict")
	ssl := envOr("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// OpenPostgresFromEnv：连接池上限由 PG_MAX_OPEN_CONNS / PG_MAX_IDLE_CONNS 覆盖
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	maxOpen, maxIdle := 10, 5
	if n, e := strconv.Atoi(os.Getenv("PG_MAX_OPEN_CONNS")); e == nil {
		maxOpen = n
	}
	if n, e := strconv.Atoi(os.Getenv("PG_MAX_IDLE_CONNS")); e == nil {
		maxIdle = n
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

// OpenSQLite：本地单机目录；父目录不存在时自动创建
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// 单写者；避免 database is locked
	db.SetMaxOpenConns(1)
	return db, nil
}

// 文档注释：按 CATALOG_DRIVER 打开快照目录
// 背景：目录是可选索引；未配置（none/空）时返回 nil 连接，服务照常运行。
// 约束：取值 postgres | sqlite | none；其余值报错。返回的方言字符串与 store 包常量一致。
func OpenCatalogFromEnv() (*sql.DB, string, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("CATALOG_DRIVER")))
	switch driver {
	case "", "none":
		return nil, "", nil
	case "postgres":
		db, err := OpenPostgresFromEnv()
		return db, driver, err
	case "sqlite":
		path := envOr("CATALOG_SQLITE_PATH", "data/catalog.db")
		logger.L().Debug("catalog_sqlite", "path", path)
		db, err := OpenSQLite(path)
		return db, driver, err
	default:
		return nil, "", fmt.Errorf("unknown CATALOG_DRIVER %q", driver)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
