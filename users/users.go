package users

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string    `json:"id" validate:"required"`   // Unique identifier for the user
	Name         string    `json:"name" validate:"required"` // Login name, unique
	Email        string    `json:"email,omitempty"`          // User's email address
	Role         Role      `json:"role"`                     // Privilege level
	PasswordHash string    `json:"-"`                        // Hashed password - never serialize
	OTPEnabled   bool      `json:"otp_enabled"`              // Login requires a one-time passcode step
	CreatedAt    time.Time `json:"created_at,omitempty"`     // Registration time
	LastLogin    time.Time `json:"last_login,omitempty"`     // Last successful login
}

// HasRole reports whether the user's role is at least required. A nil user never has a role.
func (u *User) HasRole(required Role) bool {
	if u == nil {
		return false
	}
	return HasRole(u.Role, required)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
