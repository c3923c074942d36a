package toolkit

import (
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL = "https://securetoken.googleapis.com/v1/token"
)

// Config is loaded from IDENTITY_* variables.
type Config struct {
	APIKey        string        `env:"IDENTITY_API_KEY" envDefault:"emulator-key"`
	BaseURL       string        `env:"IDENTITY_BASE_URL" envDefault:"https://identitytoolkit.googleapis.com/v1"`
	TokenURL      string        `env:"IDENTITY_TOKEN_URL" envDefault:"https://securetoken.googleapis.com/v1/token"`
	SessionFile   string        `env:"IDENTITY_SESSION_FILE"`
	SessionSecret string        `env:"IDENTITY_SESSION_SECRET"`
	Timeout       time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"15s"`
}

// ForEmulator points both endpoints at an emulator listening on origin,
// e.g. "http://127.0.0.1:9099".
func (c Config) ForEmulator(origin string) Config {
	origin = strings.TrimRight(origin, "/")
	c.BaseURL = origin + "/identitytoolkit.googleapis.com/v1"
	c.TokenURL = origin + "/securetoken.googleapis.com/v1/token"
	return c
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}
