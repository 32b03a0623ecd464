package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/quizzo-backend/internal/models"
)

// UserResponse - публичное представление пользователя в ответах авторизации.
type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	PhoneNumber     string    `json:"phoneNumber"`
	Email           string    `json:"email,omitempty"`
	DisplayName     string    `json:"displayName"`
	SchoolID        string    `json:"schoolId"`
	PhotoURL        string    `json:"photoURL,omitempty"`
	IsPhoneVerified bool      `json:"isPhoneVerified"`
	IsEmailVerified bool      `json:"isEmailVerified"`
}

// ProfileResponse - пользователь со статистикой для /auth/me.
type ProfileResponse struct {
	UserResponse
	Stats       models.UserStats `json:"stats"`
	LastLoginAt *time.Time       `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type AuthResponse struct {
	Message      string       `json:"message"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

type TokenResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// OTPSentResponse - ответ на выдачу кода. DevelopmentNote заполняется,
// когда доставка не удалась вне production и код остался только в логе.
type OTPSentResponse struct {
	Message         string `json:"message"`
	DevelopmentNote string `json:"developmentNote,omitempty"`
}

type VerifyOTPResponse struct {
	Message  string `json:"message"`
	Verified bool   `json:"verified"`
}

type PhoneAvailabilityResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

type UploadResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	ImageID  string `json:"imageId"`
	Message  string `json:"message"`
}

type MeResponse struct {
	User ProfileResponse `json:"user"`
}

// NewUserResponse строит ответ из модели.
func NewUserResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		PhoneNumber:     u.PhoneNumber,
		DisplayName:     u.DisplayName,
		SchoolID:        u.SchoolIDURL,
		PhotoURL:        u.PhotoURL,
		IsPhoneVerified: u.IsPhoneVerified,
		IsEmailVerified: u.IsEmailVerified,
	}
	if u.Email != nil {
		resp.Email = *u.Email
	}
	return resp
}

func NewProfileResponse(u *models.User) ProfileResponse {
	return ProfileResponse{
		UserResponse: NewUserResponse(u),
		Stats:        u.UserStats,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}
