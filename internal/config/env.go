package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Env holds configuration read from the process environment. Values here
// are deployment concerns; per-user choices live in Settings.
type Env struct {
	BackendURL string `env:"VIDFETCH_BACKEND_URL" env-default:"http://localhost:8000"`
}

// LoadEnv reads configuration from the environment.
func LoadEnv() (*Env, error) {
	var env Env
	if err := cleanenv.ReadEnv(&env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &env, nil
}
