package server

import (
	"context"
	"fmt"

	"github.com/craftyxhub/craftyx-portal/internal/errors"
	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/rs/zerolog/log"
)

const generatedPasswordBytes = 18

// InitialiseSystem makes sure the configured admin account exists.
// Returns the generated password on first creation (empty string if already exists
// or a password was configured).
func (s *Server) InitialiseSystem(ctx context.Context) (generatedPassword string, err error) {
	username := s.config.GetAdminUsername()
	if username == "" {
		log.Warn().Msg("no admin username configured, skipping bootstrap")
		return "", nil
	}

	password := s.config.GetAdminPassword()
	if password == "" {
		if password, err = generateAdminPassword(); err != nil {
			return "", fmt.Errorf("[Server InitialiseSystem] generate password: %w", err)
		}
		generatedPassword = password
	}

	admin, err := s.auth.Register(ctx, username, "", password, users.RoleAdmin, false)
	if errors.Is(err, errors.ErrUserExists) {
		log.Debug().Str("username", username).Msg("admin account already exists")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("[Server InitialiseSystem] failed to bootstrap admin: %w", err)
	}

	event := log.Info().Str("username", admin.Name).Str("user_id", admin.ID)
	if generatedPassword != "" {
		event = event.Str("password", generatedPassword)
	}
	event.Msg("admin account created")
	return generatedPassword, nil
}

// generateAdminPassword returns a random password that passes the strength check.
func generateAdminPassword() (string, error) {
	random, err := generateRandomString(generatedPasswordBytes)
	if err != nil {
		return "", err
	}
	// Guarantee the required character classes regardless of the random part
	return "Cx9" + random, nil
}
