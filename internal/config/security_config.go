package config

import "time"

type SecurityConfig interface {
	GetMaxSessionAge() time.Duration
	GetSessionSweepSchedule() string
	GetSecureCookies() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetMaxSessionAge() time.Duration {
	return 7 * 24 * time.Hour
}

// GetSessionSweepSchedule is a cron spec for removing expired server-side sessions.
func (Security) GetSessionSweepSchedule() string {
	return GetEnv("SESSION_SWEEP_SCHEDULE", "@every 5m")
}

func (Security) GetSecureCookies() bool {
	return GetEnv("ENV", "DEV") != "DEV"
}
