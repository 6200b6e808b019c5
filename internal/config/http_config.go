package config

import (
	"strings"
	"time"
)

type HTTPConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetUserAgent() string
}

type HTTP struct {
	// BaseURL is the backend API root, e.g. "https://mcc.example.com/api"
	BaseURL        string        `env:"API_BASE" envDefault:"http://localhost:5000/api"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	UserAgent      string        `env:"USER_AGENT" envDefault:"mcc-client/1.0"`
}

var _ HTTPConfig = HTTP{}

func (h HTTP) GetBaseURL() string {
	return strings.TrimRight(h.BaseURL, "/")
}

func (h HTTP) GetRequestTimeout() time.Duration {
	if h.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return h.RequestTimeout
}

func (h HTTP) GetUserAgent() string {
	return h.UserAgent
}
