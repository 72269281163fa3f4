package domain

import (
	"net/mail"
	"strings"
)

// MinPasswordLength is the shortest password sign-up accepts.
const MinPasswordLength = 6

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredentials checks sign-up input. email must already be normalized.
func ValidateCredentials(email, password string) error {
	if email == "" {
		return Validation("a valid email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return Validation("a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return Validation("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
