package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinNameLength     = 2
	MaxNameLength     = 50
	MinPasswordLength = 6
	MaxPasswordLength = 100
)

var (
	phoneRegex  = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	otpRegex    = regexp.MustCompile(`^\d{6}$`)
	nameRegex   = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	localRegex  = regexp.MustCompile(`^[a-z0-9._+-]+$`)
	domainRegex = regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
)

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters long", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s cannot exceed %d characters", fieldName, max)
	}
	return nil
}

// ValidatePhone проверяет номер в формате E.164 (плюс необязателен).
func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return errors.New("Please provide a valid phone number")
	}
	return nil
}

// ValidateOTP проверяет, что код состоит ровно из 6 цифр.
func ValidateOTP(code string) error {
	if !otpRegex.MatchString(code) {
		return errors.New("OTP must be exactly 6 digits")
	}
	return nil
}

// ValidateName проверяет имя игрока: 2-50 латинских букв и пробелов.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if err := ValidateLength("Name", name, MinNameLength, MaxNameLength); err != nil {
		return err
	}
	if !nameRegex.MatchString(name) {
		return errors.New("Name can only contain letters and spaces")
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return errors.New("Please provide a valid email address")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 || !localRegex.MatchString(localPart) {
		return errors.New("Please provide a valid email address")
	}

	if len(domainPart) > 255 || !domainRegex.MatchString(domainPart) {
		return errors.New("Please provide a valid email address")
	}

	return nil
}

// ValidateIdentifier принимает email или номер телефона.
func ValidateIdentifier(identifier string) error {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return ValidateEmail(identifier)
	}
	if err := ValidatePhone(identifier); err != nil {
		return errors.New("Please provide a valid email or phone number")
	}
	return nil
}
