package config

import "strings"

// RedisConfig contains configuration for the optional Redis event mirror.
type RedisConfig struct {
	Enabled   bool   `env:"ENABLED"    envDefault:"false"`
	URI       string `env:"URI"        envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"   envDefault:""`
	DB        int    `env:"DB"         envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"idflow:"`
	// StreamMaxLen bounds the mirrored event stream (approximate trimming).
	StreamMaxLen int64 `env:"STREAM_MAX_LEN" envDefault:"1000"`
}

// Sanitize disables the mirror when no address is configured.
func (c *RedisConfig) Sanitize() {
	c.URI = strings.TrimSpace(c.URI)
	if c.URI == "" {
		c.Enabled = false
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "idflow:"
	}
	if c.StreamMaxLen < 0 {
		c.StreamMaxLen = 0
	}
}
