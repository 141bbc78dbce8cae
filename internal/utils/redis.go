// 包 utils：环境变量读取与外部连接（PostgreSQL、Redis）的打开
package utils

import (
	"strconv"
	"strings"

	"anfr-diff/internal/logger"

	"github.com/redis/go-redis/v9"
)

// OpenRedis：使用地址、密码与 DB 编号打开 Redis 客户端
// 约束：addr 为空视为未启用，返回 nil
func OpenRedis(addr, pass string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// OpenRedisFromEnv：从环境变量打开 Redis 客户端，支持 REDIS_DB 选择
// 约束：REDIS_DB 解析失败时回退到 0；未配置 REDIS_HOST 时返回 nil，缓存随之关闭
func OpenRedisFromEnv() *redis.Client {
	host := Env("REDIS_HOST", "")
	if host == "" {
		return nil
	}
	addr := host + ":" + Env("REDIS_PORT", "6379")
	db := 0
	if v := strings.TrimSpace(Env("REDIS_DB", "")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return OpenRedis(addr, Env("REDIS_PASS", ""), db)
}
