package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ServerEnv holds process settings for the HTTP server.
type ServerEnv struct {
	Addr         string `env:"AGENCYDESK_ADDR" envDefault:"127.0.0.1:8080"`
	BasePath     string `env:"AGENCYDESK_BASE_PATH" envDefault:"/v1"`
	JWTSecret    string `env:"AGENCYDESK_JWT_SECRET"`
	OTelEndpoint string `env:"AGENCYDESK_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"AGENCYDESK_OTEL_ENABLED" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServerEnv parses ServerEnv from the process environment.
func LoadServerEnv() (ServerEnv, error) {
	var cfg ServerEnv
	if err := ParseEnv(&cfg); err != nil {
		return ServerEnv{}, err
	}
	return cfg, nil
}
