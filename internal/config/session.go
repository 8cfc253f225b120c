package config

import "time"

// SessionConfig controls the idle session sweeper.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// LoadSessionConfig reads SESSION_IDLE_TIMEOUT and SESSION_SWEEP_INTERVAL.
func LoadSessionConfig() SessionConfig {
	cfg := SessionConfig{
		IdleTimeout:   envDur("SESSION_IDLE_TIMEOUT", 2*time.Hour),
		SweepInterval: envDur("SESSION_SWEEP_INTERVAL", 5*time.Minute),
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return cfg
}
