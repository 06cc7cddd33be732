package config

import "time"

// Storage backends understood by STORAGE_BACKEND.
const (
	StorageBackendMemory = "memory"
	StorageBackendRedis  = "redis"
	StorageBackendSQLite = "sqlite"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetSQLitePath() string
	GetStorageSecret() string
	GetDeviceCookieMaxAge() time.Duration
}

type Storage struct {
	Backend            string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	RedisAddr          string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB" envDefault:"0"`
	SQLitePath         string        `env:"SQLITE_PATH" envDefault:"./data/sessions.db"`
	Secret             string        `env:"STORAGE_SECRET"`
	DeviceCookieMaxAge time.Duration `env:"DEVICE_COOKIE_MAX_AGE" envDefault:"8760h"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageBackend() string {
	return s.Backend
}

func (s Storage) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Storage) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Storage) GetRedisDB() int {
	return s.RedisDB
}

func (s Storage) GetSQLitePath() string {
	return s.SQLitePath
}

func (s Storage) GetStorageSecret() string {
	return s.Secret
}

func (s Storage) GetDeviceCookieMaxAge() time.Duration {
	return s.DeviceCookieMaxAge
}
