package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"redistrict/internal/logger"
)

// OpenRedisFromEnv：REDIS_ENABLE 非真值时返回 nil（仅使用进程内缓存）
// 约束：REDIS_DB 解析失败时回退到 0
func OpenRedisFromEnv() *redis.Client {
	switch strings.ToLower(os.Getenv("REDIS_ENABLE")) {
	case "1", "true", "yes", "on":
	default:
		return nil
	}
	addr := envOr("REDIS_HOST", "127.0.0.1") + ":" + envOr("REDIS_PORT", "6379")
	db := 0
	if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil && n >= 0 {
		db = n
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASS"), DB: db})
}
