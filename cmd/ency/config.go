package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrymomot/ency/pkg/config"
	"github.com/dmitrymomot/ency/pkg/identity/federated"
	"github.com/dmitrymomot/ency/pkg/identity/toolkit"
)

// profileConfig selects the profile backend and the process-wide settings.
type profileConfig struct {
	Store    string        `env:"PROFILE_STORE" envDefault:"memory"`
	CacheTTL time.Duration `env:"PROFILE_CACHE_TTL" envDefault:"0"`
	Env      string        `env:"APP_ENV" envDefault:"development"`
	LogLevel string        `env:"LOG_LEVEL"`
}

type appConfig struct {
	profile  profileConfig
	identity toolkit.Config
	google   federated.GoogleConfig
}

func loadConfig() (appConfig, error) {
	var cfg appConfig
	if err := config.Load(&cfg.profile); err != nil {
		return cfg, err
	}
	if err := config.Load(&cfg.identity); err != nil {
		return cfg, err
	}
	if err := config.Load(&cfg.google); err != nil {
		return cfg, err
	}
	if cfg.identity.SessionFile == "" {
		cfg.identity.SessionFile = defaultSessionFile()
	}
	return cfg, nil
}

// defaultSessionFile keeps the session between invocations so that signin
// and whoami can run as separate commands.
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ency", "session.json")
}
