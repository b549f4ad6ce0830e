package config

import "github.com/joho/godotenv"

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetAPIBaseURL() string
	GetDatabaseURL() string
	GetLogLevel() string
	GetLogFormat() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Security
}

// New loads .env files, if present, and returns the environment backed config.
// Variables already set in the process environment take precedence.
func New() Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
	return mainConfig{}
}
