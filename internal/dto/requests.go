package dto

// PhoneRequest - тело check-phone-availability и send-registration-otp.
type PhoneRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required,phone"`
}

// RegisterRequest - тело POST /auth/register.
type RegisterRequest struct {
	PhoneNumber     string `json:"phoneNumber" binding:"required,phone"`
	OTP             string `json:"otp" binding:"required,otp"`
	Password        string `json:"password" binding:"required,password"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	Name            string `json:"name" binding:"required,name"`
	Email           string `json:"email" binding:"omitempty,email"`
	SchoolID        string `json:"schoolId"`
}

// LoginRequest - вход по email или телефону.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// IdentifierRequest - тело forgot-password и resend-otp.
type IdentifierRequest struct {
	Identifier string `json:"identifier" binding:"required,identifier"`
}

type VerifyOTPRequest struct {
	Identifier string `json:"identifier" binding:"required,identifier"`
	OTP        string `json:"otp" binding:"required,otp"`
}

type ResetPasswordRequest struct {
	Identifier  string `json:"identifier" binding:"required,identifier"`
	OTP         string `json:"otp" binding:"required,otp"`
	NewPassword string `json:"newPassword" binding:"required,password"`
}

// RefreshTokenRequest - тело refresh-token и logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}
