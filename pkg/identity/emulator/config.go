package emulator

import "time"

// Config is loaded from EMULATOR_* variables.
type Config struct {
	Addr              string        `env:"EMULATOR_ADDR" envDefault:"127.0.0.1:9099"`
	ProjectID         string        `env:"EMULATOR_PROJECT_ID" envDefault:"ency-local"`
	SigningKey        string        `env:"EMULATOR_SIGNING_KEY" envDefault:"ency-emulator-signing-key"`
	TokenTTL          time.Duration `env:"EMULATOR_TOKEN_TTL" envDefault:"1h"`
	SeedFile          string        `env:"EMULATOR_SEED_FILE"`
	MinPasswordLength int           `env:"EMULATOR_MIN_PASSWORD_LENGTH" envDefault:"6"`
	BcryptCost        int           `env:"EMULATOR_BCRYPT_COST" envDefault:"10"`
	MaxFailedLogins   int           `env:"EMULATOR_MAX_FAILED_LOGINS" envDefault:"5"`
	LockoutDuration   time.Duration `env:"EMULATOR_LOCKOUT_DURATION" envDefault:"1m"`

	// RateLimit is the number of provider API calls a client address may
	// make per RateLimitInterval. Zero disables throttling.
	RateLimit         int           `env:"EMULATOR_RATE_LIMIT" envDefault:"0"`
	RateLimitInterval time.Duration `env:"EMULATOR_RATE_LIMIT_INTERVAL" envDefault:"1m"`
	TrustProxyHeaders bool          `env:"EMULATOR_TRUST_PROXY_HEADERS" envDefault:"false"`
}

func (c Config) withDefaults() Config {
	if c.ProjectID == "" {
		c.ProjectID = "ency-local"
	}
	if c.SigningKey == "" {
		c.SigningKey = "ency-emulator-signing-key"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = time.Hour
	}
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = 6
	}
	if c.BcryptCost <= 0 {
		c.BcryptCost = 10
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = time.Minute
	}
	if c.RateLimitInterval <= 0 {
		c.RateLimitInterval = time.Minute
	}
	return c
}
