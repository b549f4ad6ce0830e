package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/craftyxhub/craftyx-portal/users"
	"github.com/rs/zerolog/log"
)

// OTPSender delivers a one-time passcode to the user out of band.
type OTPSender interface {
	SendOTP(ctx context.Context, user *users.User, code string) error
}

// LogOTPSender writes passcodes to the log. It is meant for development only.
type LogOTPSender struct{}

func (LogOTPSender) SendOTP(_ context.Context, user *users.User, code string) error {
	log.Info().Str("username", user.Name).Str("code", code).Msg("one-time passcode issued")
	return nil
}

// generateOTP returns length random decimal digits.
func generateOTP(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
