package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeConflict       ErrorCode = "CONFLICT"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeOTPInvalid     ErrorCode = "OTP_INVALID"
	ErrCodeOTPExpired     ErrorCode = "OTP_EXPIRED"
	ErrCodeNoToken        ErrorCode = "NO_TOKEN"
	ErrCodeInvalidToken   ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired   ErrorCode = "TOKEN_EXPIRED"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeRouteNotFound  ErrorCode = "ROUTE_NOT_FOUND"
	ErrCodeUploadFailed   ErrorCode = "UPLOAD_FAILED"
	ErrCodeDeliveryFailed ErrorCode = "OTP_DELIVERY_FAILED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    []string
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы errors.Is(Wrap(x, code, ...), sentinel) работал.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Validation собирает ошибку валидации со списком сообщений по полям.
func Validation(message string, details ...string) *AppError {
	e := New(ErrCodeValidation, message)
	e.Details = details
	return e
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound, ErrCodeRouteNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized, ErrCodeNoToken, ErrCodeInvalidToken, ErrCodeTokenExpired:
		return http.StatusUnauthorized
	// Конфликт регистрации отдаём как 400, так его ждёт мобильный клиент.
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeConflict, ErrCodeOTPInvalid, ErrCodeOTPExpired:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrUserNotFound       = New(ErrCodeNotFound, "User not found")
	ErrUnauthorized       = New(ErrCodeUnauthorized, "Access denied")
	ErrNoToken            = New(ErrCodeNoToken, "Access denied. No token provided.")
	ErrAccessDenied       = New(ErrCodeInvalidToken, "Access denied. Invalid or expired token.")
	ErrInvalidCredentials = New(ErrCodeUnauthorized, "Invalid credentials")
	ErrPasswordMismatch   = Validation("Passwords do not match", "Passwords do not match")
	ErrPhoneTaken         = New(ErrCodeConflict, "User already exists with this phone number")
	ErrEmailTaken         = New(ErrCodeConflict, "User already exists with this email")
	ErrOTPNotFound        = New(ErrCodeOTPInvalid, "Invalid OTP")
	ErrOTPExpired         = New(ErrCodeOTPExpired, "OTP has expired")
	ErrOTPDelivery        = New(ErrCodeDeliveryFailed, "Failed to send OTP. Please try again.")
	ErrInvalidToken       = New(ErrCodeInvalidToken, "Invalid or expired token")
	ErrTokenExpired       = New(ErrCodeTokenExpired, "Token has expired")
)
