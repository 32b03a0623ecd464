package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/quizzo-backend/internal/dto"
	"github.com/ignatzorin/quizzo-backend/internal/http/handlers/common"
	"github.com/ignatzorin/quizzo-backend/internal/http/response"
	"github.com/ignatzorin/quizzo-backend/internal/models"
	"github.com/ignatzorin/quizzo-backend/internal/service"
)

const (
	msgOTPSent        = "OTP sent successfully"
	msgGenericOTPSent = "If an account exists, an OTP has been sent"
	devDeliveryNote   = "OTP delivery unavailable - code logged on the server"
)

// authService - операции AuthService, которые нужны HTTP слою.
type authService interface {
	CheckPhoneAvailability(ctx context.Context, phone string) (bool, error)
	SendRegistrationOTP(ctx context.Context, phone string) (*service.Issued, error)
	Register(ctx context.Context, in service.RegisterInput, meta service.SessionMeta) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput, meta service.SessionMeta) (*service.AuthResult, error)
	ForgotPassword(ctx context.Context, identifier string) error
	VerifyOTP(ctx context.Context, identifier, code string) error
	ResetPassword(ctx context.Context, identifier, code, newPassword string) error
	ResendOTP(ctx context.Context, identifier string) error
	Refresh(ctx context.Context, refreshToken string, meta service.SessionMeta) (*service.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// AuthHandler предоставляет HTTP слой регистрации, входа и восстановления пароля.
// Ошибки уходят в c.Error и отдаются клиенту через ErrorHandler.
type AuthHandler struct {
	auth authService
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth authService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// CheckPhoneAvailability обрабатывает POST /auth/check-phone-availability.
func (h *AuthHandler) CheckPhoneAvailability(c *gin.Context) {
	var req dto.PhoneRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	available, err := h.auth.CheckPhoneAvailability(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		_ = c.Error(err)
		return
	}

	msg := "Phone number is available"
	if !available {
		msg = "Phone number is already registered"
	}
	response.OK(c, dto.PhoneAvailabilityResponse{Available: available, Message: msg})
}

// SendRegistrationOTP обрабатывает POST /auth/send-registration-otp.
func (h *AuthHandler) SendRegistrationOTP(c *gin.Context) {
	var req dto.PhoneRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	issued, err := h.auth.SendRegistrationOTP(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.OTPSentResponse{Message: msgOTPSent}
	if !issued.Delivered {
		resp.DevelopmentNote = devDeliveryNote
	}
	response.OK(c, resp)
}

// Register обрабатывает POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		PhoneNumber:     req.PhoneNumber,
		OTP:             req.OTP,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Name:            req.Name,
		Email:           req.Email,
		SchoolID:        req.SchoolID,
	}, common.SessionMeta(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Created(c, authResponse("User registered successfully", result))
}

// Login обрабатывает POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Identifier: req.Identifier,
		Password:   req.Password,
	}, common.SessionMeta(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, authResponse("Login successful", result))
}

// ForgotPassword обрабатывает POST /auth/forgot-password.
// Ответ не зависит от того, существует ли пользователь.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.IdentifierRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.auth.ForgotPassword(c.Request.Context(), req.Identifier); err != nil {
		_ = c.Error(err)
		return
	}

	response.Message(c, msgGenericOTPSent)
}

// VerifyOTP обрабатывает POST /auth/verify-otp. Код при этом не гасится.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.auth.VerifyOTP(c.Request.Context(), req.Identifier, req.OTP); err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, dto.VerifyOTPResponse{Message: "OTP verified successfully", Verified: true})
}

// ResetPassword обрабатывает POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Identifier, req.OTP, req.NewPassword); err != nil {
		_ = c.Error(err)
		return
	}

	response.Message(c, "Password reset successfully")
}

// ResendOTP обрабатывает POST /auth/resend-otp.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req dto.IdentifierRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	// Для незарегистрированного email код не уходит, поэтому текст общий.
	if err := h.auth.ResendOTP(c.Request.Context(), req.Identifier); err != nil {
		_ = c.Error(err)
		return
	}

	response.Message(c, msgGenericOTPSent)
}

// RefreshToken обрабатывает POST /auth/refresh-token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken, common.SessionMeta(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, dto.TokenResponse{
		Message:      "Token refreshed successfully",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout обрабатывает POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := common.BindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		_ = c.Error(err)
		return
	}

	response.Message(c, "Logged out successfully")
}

// Me обрабатывает GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.OK(c, dto.MeResponse{User: dto.NewProfileResponse(user)})
}

func authResponse(message string, result *service.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		Message:      message,
		AccessToken:  result.TokenPair.AccessToken,
		RefreshToken: result.TokenPair.RefreshToken,
		User:         dto.NewUserResponse(result.User),
	}
}
