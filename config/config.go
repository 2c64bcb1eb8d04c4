package config

import (
	"log/slog"
	"os"
	"strings"
)

// AppConfig is the main configuration struct for the flow simulator. It
// composes the per-concern configuration defined in the sibling files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library (see bootstrap.LoadConfig):
//   - flow.go: simulated latency between stages and log history
//   - auth.go: token claims/lifetimes, credential lifetime, federation
//   - redis.go: optional Redis event mirror
//   - observability.go: StatsD metrics
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, debug level).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Log LogConfig

	Flow        FlowConfig
	Tokens      TokenConfig
	Credentials CredentialConfig
	Federation  FederationConfig

	// Redis event mirror configuration
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// LogConfig controls the slog handler built by bootstrap.InitLogger.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json or text
}

// SlogLevel maps Level onto slog, falling back to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Flow.Sanitize()
	c.Tokens.Sanitize()
	c.Credentials.Sanitize()
	c.Federation.Sanitize()
	c.Redis.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
	if c.IsDev && strings.TrimSpace(c.Log.Format) == "json" {
		c.Log.Format = "text"
	}
}

// detectDevMode checks NODE_ENV as a fallback for DEV.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
