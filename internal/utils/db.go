package utils

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// BuildPostgresDSNFromEnv：由 PG_* 变量拼装 lib/pq 连接串
func BuildPostgresDSNFromEnv() string {
	user := Env("PG_USER", "postgres")
	pass := Env("PG_PASSWORD", "")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + Env("PG_HOST", "localhost") + ":" + Env("PG_PORT", "5432") + "/" + Env("PG_DB", "anfr") +
		"?sslmode=" + Env("PG_SSLMODE", "disable")
	return dsn
}

// OpenPostgresFromEnv：打开连接池
// 约束：sql.Open 不建立连接，可达性由调用方 Ping 判断
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(EnvInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(EnvInt("PG_MAX_IDLE_CONNS", 5))
	return db, nil
}
