package config

import "strings"

const envPrefix = "MCC_"

type EnvVars struct {
	AppName  string `env:"APP_NAME" envDefault:"MCC"`
	Env      string `env:"ENV" envDefault:"DEV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(e.LogLevel)
}
