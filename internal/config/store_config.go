package config

import "path/filepath"

const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
	StoreDriverBolt   = "bolt"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetBoltPath() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreDriver() string {
	return GetEnv("SESSION_STORE", StoreDriverMemory)
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Store) GetRedisDB() int {
	return GetInt("REDIS_DB", 0)
}

func (Store) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "reminder:session:")
}

func (Store) GetBoltPath() string {
	return GetEnv("BOLT_PATH", filepath.Join(EnvVars{}.GetDataFolder(), "sessions.db"))
}
