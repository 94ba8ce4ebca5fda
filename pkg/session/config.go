package session

import "time"

// Config holds session timeouts and cookie naming.
type Config struct {
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`

	AnonIdleTimeout time.Duration `env:"SESSION_ANON_IDLE_TIMEOUT" envDefault:"30m"`
	AnonMaxLifetime time.Duration `env:"SESSION_ANON_MAX_LIFETIME" envDefault:"24h"`

	AuthIdleTimeout time.Duration `env:"SESSION_AUTH_IDLE_TIMEOUT" envDefault:"24h"`
	AuthMaxLifetime time.Duration `env:"SESSION_AUTH_MAX_LIFETIME" envDefault:"720h"`

	// CleanupInterval drives MemoryStore expiry sweeps (0 disables).
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	// Store selects the backing store: "memory" or "redis".
	Store string `env:"SESSION_STORE" envDefault:"memory"`
}

func DefaultConfig() Config {
	return Config{
		CookieName:      "sid",
		AnonIdleTimeout: 30 * time.Minute,
		AnonMaxLifetime: 24 * time.Hour,
		AuthIdleTimeout: 24 * time.Hour,
		AuthMaxLifetime: 30 * 24 * time.Hour,
		CleanupInterval: 5 * time.Minute,
		Store:           "memory",
	}
}

func (c Config) timeouts(authenticated bool) (idle, max time.Duration) {
	if authenticated {
		return c.AuthIdleTimeout, c.AuthMaxLifetime
	}
	return c.AnonIdleTimeout, c.AnonMaxLifetime
}
