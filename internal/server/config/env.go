package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig mirrors Config for the environment overlay. Only variables that
// are actually set override earlier layers.
type envConfig struct {
	EndpointAddr                 string        `env:"RUN_ADDRESS"`
	DatabaseDSN                  string        `env:"DATABASE_DSN"`
	AccessTokenSecret            string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret           string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenValidityDuration  time.Duration `env:"ACCESS_TOKEN_VALIDITY"`
	RefreshTokenValidityDuration time.Duration `env:"REFRESH_TOKEN_VALIDITY"`
	SecureCookies                *bool         `env:"SECURE_COOKIES"`
}

func parseEnv(config *Config) {
	e := envConfig{}
	if err := env.Parse(&e); err != nil {
		panic(err)
	}

	if e.EndpointAddr != "" {
		config.EndpointAddr = e.EndpointAddr
	}
	if e.DatabaseDSN != "" {
		config.DatabaseDSN = e.DatabaseDSN
	}
	if e.AccessTokenSecret != "" {
		config.AccessTokenSecret = e.AccessTokenSecret
	}
	if e.RefreshTokenSecret != "" {
		config.RefreshTokenSecret = e.RefreshTokenSecret
	}
	if e.AccessTokenValidityDuration != 0 {
		config.AccessTokenValidityDuration = e.AccessTokenValidityDuration
	}
	if e.RefreshTokenValidityDuration != 0 {
		config.RefreshTokenValidityDuration = e.RefreshTokenValidityDuration
	}
	if e.SecureCookies != nil {
		config.SecureCookies = *e.SecureCookies
	}
}
