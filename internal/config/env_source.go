package config

import (
	"fmt"
	"os"
)

// EnvSource reads settings from the process environment. The demo fills it
// from a .env file in development builds.
type EnvSource struct{}

func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

func (*EnvSource) Name() string { return "env" }

// Get treats an empty variable like an unset one.
func (*EnvSource) Get(key string) (string, error) {
	if val := os.Getenv(key); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%s: %w", key, ErrNotSet)
}
