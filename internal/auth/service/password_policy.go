package service

import (
	"unicode"

	autherror "github.com/nuvemautoma/hot-class/internal/errors"
)

const (
	MinPasswordLength = 6
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
)

// ValidatePassword enforces the account password policy: 6-72 bytes, at least
// one uppercase letter and at least one special character.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return autherror.ErrWeakPassword
	}

	var hasUpper, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasSpecial {
		return autherror.ErrWeakPassword
	}
	return nil
}
