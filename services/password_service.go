package services

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes long")
	ErrPasswordNoLetter = errors.New("password must contain at least one letter")
	ErrPasswordNoNumber = errors.New("password must contain at least one number")
	ErrPasswordCommon   = errors.New("password is too common")
	ErrPasswordSpaces   = errors.New("password must not start or end with whitespace")
)

// PasswordValidator checks passwords against the account policy.
type PasswordValidator struct {
	minLength       int
	maxBytes        int
	requireLetter   bool
	requireNumber   bool
	commonPasswords map[string]bool
}

func NewPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		minLength:     8,
		maxBytes:      72, // bcrypt input limit
		requireLetter: true,
		requireNumber: true,
		commonPasswords: map[string]bool{
			"password1": true,
			"12345678a": true,
			"qwerty123": true,
			"admin1234": true,
			"welcome1":  true,
			"letmein1":  true,
		},
	}
}

// ValidatePassword returns the first policy violation found, or nil.
func (pv *PasswordValidator) ValidatePassword(password string) error {
	if len([]rune(password)) < pv.minLength {
		return ErrPasswordTooShort
	}
	if len(password) > pv.maxBytes {
		return ErrPasswordTooLong
	}
	if strings.TrimSpace(password) != password {
		return ErrPasswordSpaces
	}

	var hasLetter, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if pv.requireLetter && !hasLetter {
		return ErrPasswordNoLetter
	}
	if pv.requireNumber && !hasNumber {
		return ErrPasswordNoNumber
	}
	if pv.commonPasswords[strings.ToLower(password)] {
		return ErrPasswordCommon
	}
	return nil
}

func IsPasswordStrong(password string) bool {
	return NewPasswordValidator().ValidatePassword(password) == nil
}
