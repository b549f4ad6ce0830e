package config

import (
	"fmt"
	"time"
)

// DevJWTSecret is the signing secret used when JWT_SECRET is unset. It is only
// acceptable in the DEV environment.
const DevJWTSecret = "craftyxhub-dev-secret"

type AuthConfig interface {
	GetJWTSecret() string
	GetTokenIssuer() string
	GetAccessTokenExpiry() time.Duration
	GetOTPExpiry() time.Duration
	GetOTPLength() int
	GetAdminUsername() string
	GetAdminPassword() string
}

type Auth struct{}

var _ AuthConfig = Auth{}

func (Auth) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", DevJWTSecret)
}

// Validate rejects settings that are only safe for local development when running
// in any other environment.
func Validate(c Config) error {
	if c.GetEnv() != "DEV" && c.GetJWTSecret() == DevJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set when ENV is %q", c.GetEnv())
	}
	return nil
}

func (Auth) GetTokenIssuer() string {
	return GetEnv("TOKEN_ISSUER", "craftyxhub")
}

func (Auth) GetAccessTokenExpiry() time.Duration {
	return 15 * time.Minute
}

func (Auth) GetOTPExpiry() time.Duration {
	return 5 * time.Minute
}

func (Auth) GetOTPLength() int {
	return 6
}

func (Auth) GetAdminUsername() string {
	return GetEnv("ADMIN_USERNAME", "admin")
}

// GetAdminPassword returns the bootstrap admin password. Empty means one is generated at startup.
func (Auth) GetAdminPassword() string {
	return GetEnv("ADMIN_PASSWORD", "")
}
