package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	StateBackendFile   = "file"
	StateBackendRedis  = "redis"
	StateBackendSQLite = "sqlite"
)

type StorageConfig interface {
	GetStateBackend() string
	GetStateDir() string
	GetRedisAddr() string
	GetRedisPrefix() string
	GetSQLitePath() string
}

type Storage struct {
	Backend     string `env:"STATE_BACKEND" envDefault:"file"`
	Dir         string `env:"STATE_DIR"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"mcc:state:"`
	SQLitePath  string `env:"SQLITE_PATH"`
}

var _ StorageConfig = Storage{}

func (s *Storage) sanitize() {
	// Unknown backends are kept as given so opening the state reports them.
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = StateBackendFile
	}
	if s.Dir == "" {
		s.Dir = defaultStateDir()
	}
	if s.SQLitePath == "" {
		s.SQLitePath = filepath.Join(s.Dir, "state.db")
	}
}

func (s Storage) GetStateBackend() string {
	return s.Backend
}

func (s Storage) GetStateDir() string {
	return s.Dir
}

func (s Storage) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Storage) GetRedisPrefix() string {
	return s.RedisPrefix
}

func (s Storage) GetSQLitePath() string {
	return s.SQLitePath
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "mcc")
	}
	return ".mcc"
}
