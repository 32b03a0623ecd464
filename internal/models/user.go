package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает зарегистрированного игрока Quizzo.
type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	DisplayName     string     `db:"display_name" json:"displayName"`
	PhoneNumber     string     `db:"phone_number" json:"phoneNumber"`
	Email           *string    `db:"email" json:"email,omitempty"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	SchoolIDURL     string     `db:"school_id_url" json:"schoolId"`
	PhotoURL        string     `db:"photo_url" json:"photoURL"`
	IsPhoneVerified bool       `db:"is_phone_verified" json:"isPhoneVerified"`
	IsEmailVerified bool       `db:"is_email_verified" json:"isEmailVerified"`
	UserStats       `json:"stats"`
	LastLoginAt     *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// UserStats хранит игровую статистику пользователя.
type UserStats struct {
	TotalQuizzesTaken   int     `db:"total_quizzes_taken" json:"totalQuizzesTaken"`
	TotalQuizzesCreated int     `db:"total_quizzes_created" json:"totalQuizzesCreated"`
	AverageScore        float64 `db:"average_score" json:"averageScore"`
	Rank                int     `db:"rank" json:"rank"`
}

// Session представляет refresh-сессию. ID совпадает с jti refresh токена.
type Session struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"userId"`
	UserAgent  *string    `db:"user_agent" json:"userAgent,omitempty"`
	IPAddress  *string    `db:"ip_address" json:"ipAddress,omitempty"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt"`
	RevokedAt  *time.Time `db:"revoked_at" json:"revokedAt,omitempty"`
	ReplacedBy *uuid.UUID `db:"replaced_by" json:"replacedBy,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// Active сообщает, можно ли ещё обменять сессию на новую пару токенов.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
