package config

import "time"

// FlowConfig holds the artificial latency inserted between flow stages.
// The delays stand in for network round trips; they carry no meaning beyond
// marking where a real system would be asynchronous.
type FlowConfig struct {
	ValidateDelay time.Duration `env:"FLOW_VALIDATE_DELAY" envDefault:"1s"`
	CheckDelay    time.Duration `env:"FLOW_CHECK_DELAY"    envDefault:"1500ms"`
	StageDelay    time.Duration `env:"FLOW_STAGE_DELAY"    envDefault:"1s"`
	RedirectDelay time.Duration `env:"FLOW_REDIRECT_DELAY" envDefault:"2s"`
	RefreshDelay  time.Duration `env:"FLOW_REFRESH_DELAY"  envDefault:"1s"`

	// LogHistory caps the number of log entries retained for snapshots.
	LogHistory int `env:"FLOW_LOG_HISTORY" envDefault:"200"`
}

// Sanitize clamps negative delays to zero and keeps a usable log history.
func (c *FlowConfig) Sanitize() {
	for _, d := range []*time.Duration{&c.ValidateDelay, &c.CheckDelay, &c.StageDelay, &c.RedirectDelay, &c.RefreshDelay} {
		if *d < 0 {
			*d = 0
		}
	}
	if c.LogHistory <= 0 {
		c.LogHistory = 200
	}
}
