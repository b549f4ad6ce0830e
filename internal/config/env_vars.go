package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	apiBaseURLVar     = "API_BASE_URL"
	databaseURLVar    = "DATABASE_URL"
	logLevelEnvVar    = "LOG_LEVEL"
	logFormatEnvVar   = "LOG_FORMAT"
	defaultAPIBaseURL = "http://localhost:8000/api"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "CraftyXhub")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetAPIBaseURL returns the CraftyXhub API base URL without a trailing slash.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, defaultAPIBaseURL), "/")
}

// GetDatabaseURL returns the SQLite DSN for the user store. Empty means in-memory repos.
func (EnvVars) GetDatabaseURL() string {
	return GetEnv(databaseURLVar, "")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

func (EnvVars) GetLogFormat() string {
	return GetEnv(logFormatEnvVar, "console")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
