package service

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PasswordPolicy mirrors the identity subsystem's password rules:
// minimum length plus at least one upper, one lower and one digit.
type PasswordPolicy struct {
	minLength int
}

func NewPasswordPolicy(minLength int) *PasswordPolicy {
	return &PasswordPolicy{minLength: minLength}
}

func (p *PasswordPolicy) Check(password string) error {
	if len([]rune(password)) < p.minLength {
		return fmt.Errorf("password must be at least %d characters", p.minLength)
	}
	var upper, lower, digit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("password must contain upper and lower case letters and a digit")
	}
	return nil
}

// Hash derives the stored password hash.
func (p *PasswordPolicy) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
