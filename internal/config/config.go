package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	HTTPConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Storage
}

// New loads a .env file when present and reads the MCC_* environment.
func New() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (Config, error) {
	var c mainConfig
	if err := env.ParseWithOptions(&c, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.Storage.sanitize()
	return c, nil
}
