package validation

import (
	"errors"
	"unicode"
)

// ValidatePassword проверяет пароль.
// Требования:
// - от 6 до 100 символов
// - хотя бы одна строчная и одна заглавная буква
// - хотя бы одна цифра
func ValidatePassword(password string) error {
	if err := ValidateLength("Password", password, MinPasswordLength, MaxPasswordLength); err != nil {
		return err
	}

	var (
		hasUpper  = false
		hasLower  = false
		hasNumber = false
	)

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

	if !hasUpper || !hasLower || !hasNumber {
		return errors.New("Password must contain at least one lowercase letter, one uppercase letter, and one number")
	}

	return nil
}
