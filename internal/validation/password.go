package validation

import (
	"fmt"
	"unicode"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // предел bcrypt
)

// ValidatePassword проверяет пароль: длина 8..72 байт, заглавная и строчная буквы, цифра.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("пароль должен быть не менее %d символов", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("пароль должен быть не длиннее %d байт", MaxPasswordLength)
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	switch {
	case !hasUpper:
		return fmt.Errorf("пароль должен содержать хотя бы одну заглавную букву")
	case !hasLower:
		return fmt.Errorf("пароль должен содержать хотя бы одну строчную букву")
	case !hasNumber:
		return fmt.Errorf("пароль должен содержать хотя бы одну цифру")
	}
	return nil
}
