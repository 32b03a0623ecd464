package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
)

const (
	TokenIssuer   = "quizzo-app"
	TokenAudience = "quizzo-users"

	// NearExpiryThreshold - за сколько до истечения клиенту советуют обновить токен.
	NearExpiryThreshold = 5 * time.Minute
)

// TokenType различает access и refresh токены внутри claims.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims - набор полей, подписываемых в обоих токенах.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// UserID разбирает subject как UUID пользователя.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// SessionID разбирает jti как UUID сессии.
func (c *Claims) SessionID() (uuid.UUID, error) {
	return uuid.Parse(c.ID)
}

// TokenPair хранит пару access/refresh токенов.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenManager отвечает за выпуск и проверку JWT.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssuePair выпускает новую пару токенов. Возвращает claims refresh токена,
// чтобы вызывающий мог сохранить сессию с тем же jti и сроком.
func (m *TokenManager) IssuePair(userID uuid.UUID) (*TokenPair, *Claims, error) {
	now := m.now()

	access := m.claims(userID, TokenTypeAccess, now, m.accessTTL)
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(m.accessSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("token manager: подпись access токена: %w", err)
	}

	refresh := m.claims(userID, TokenTypeRefresh, now, m.refreshTTL)
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(m.refreshSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("token manager: подпись refresh токена: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, refresh, nil
}

// Verify проверяет подпись, тип, издателя и аудиторию токена.
// Истёкший токен даёт ErrTokenExpired, любая другая проблема даёт ErrInvalidToken.
func (m *TokenManager) Verify(token string, expected TokenType) (*Claims, error) {
	secret := m.accessSecret
	if expected == TokenTypeRefresh {
		secret = m.refreshSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.ErrTokenExpired
		}
		return nil, apperror.Wrap(err, apperror.ErrInvalidToken.Code, apperror.ErrInvalidToken.Message)
	}

	if !parsed.Valid || claims.Type != expected {
		return nil, apperror.ErrInvalidToken
	}

	if _, err := claims.UserID(); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrInvalidToken.Code, apperror.ErrInvalidToken.Message)
	}

	return claims, nil
}

// IsNearExpiry декодирует токен без проверки подписи и сообщает, истекает ли он в пределах threshold.
// Нечитаемый токен или токен без exp считается истекающим.
func (m *TokenManager) IsNearExpiry(token string, threshold time.Duration) bool {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Sub(m.now()) < threshold
}

func (m *TokenManager) claims(userID uuid.UUID, typ TokenType, now time.Time, ttl time.Duration) *Claims {
	return &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}
