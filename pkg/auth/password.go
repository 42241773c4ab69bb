package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost     = 12
	MinPasswordLen = 8
	// bcrypt only reads the first 72 bytes and x/crypto rejects longer input
	MaxPasswordBytes = 72
)

// ErrEmptyPassword is returned when hashing an empty password
var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordPolicyError lists every rule a candidate password breaks.
// Error() is phrased to sit behind the field name "password".
type PasswordPolicyError struct {
	Violations []string
}

func (e *PasswordPolicyError) Error() string {
	if len(e.Violations) == 0 {
		return "does not meet the password policy"
	}
	return strings.Join(e.Violations, "; ")
}

// Passwords people reach for first; compared case-insensitively
var commonPasswords = map[string]struct{}{
	"password1!":   {},
	"password123!": {},
	"passw0rd!":    {},
	"p@ssw0rd":     {},
	"p@ssword1":    {},
	"welcome1!":    {},
	"qwerty123!":   {},
	"letmein1!":    {},
	"admin123!":    {},
	"changeme1!":   {},
	"survey123!":   {},
	"iloveyou1!":   {},
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword returns nil only when password matches the bcrypt hash
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword checks length, character classes and the common-password list
func ValidatePassword(password string) error {
	var violations []string

	if len([]rune(password)) < MinPasswordLen {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordBytes {
		violations = append(violations, fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes))
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			special = true
		}
	}

	for _, rule := range []struct {
		ok   bool
		text string
	}{
		{upper, "must contain an uppercase letter"},
		{lower, "must contain a lowercase letter"},
		{digit, "must contain a digit"},
		{special, "must contain a special character"},
	} {
		if !rule.ok {
			violations = append(violations, rule.text)
		}
	}

	if _, common := commonPasswords[strings.ToLower(password)]; common {
		violations = append(violations, "is too common")
	}

	if len(violations) > 0 {
		return &PasswordPolicyError{Violations: violations}
	}
	return nil
}
