package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/quizzo-backend/internal/goroutine"
	"github.com/ignatzorin/quizzo-backend/internal/logger"
	"github.com/ignatzorin/quizzo-backend/internal/models"
	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
	"github.com/ignatzorin/quizzo-backend/internal/repository"
)

// UserStore описывает зависимости AuthService от таблицы пользователей.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
}

// SessionStore описывает хранилище refresh-сессий.
type SessionStore interface {
	Create(ctx context.Context, s *models.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Rotate(ctx context.Context, oldID uuid.UUID, next *models.Session) error
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// OTPProvider - то, что AuthService использует из OTPService.
type OTPProvider interface {
	Issue(ctx context.Context, identifier string, channel models.OTPChannel) (*Issued, error)
	Verify(ctx context.Context, identifier, code string) (*models.OTPRecord, error)
	Consume(ctx context.Context, identifier, code string) error
}

// WelcomeSender отправляет приветственное SMS после регистрации.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, phone, name string) error
}

const welcomeTimeout = 15 * time.Second

// AuthService инкапсулирует регистрацию, вход и жизненный цикл сессий.
type AuthService struct {
	users        UserStore
	sessions     SessionStore
	otp          OTPProvider
	tokenManager *TokenManager
	welcome      WelcomeSender
	bcryptCost   int
	now          func() time.Time
	// async запускает фоновые задачи; в тестах подменяется на синхронный вызов.
	async func(fn func())

	dummyOnce sync.Once
	dummyHash []byte
}

// RegisterInput содержит данные формы регистрации.
type RegisterInput struct {
	PhoneNumber     string
	OTP             string
	Password        string
	ConfirmPassword string
	Name            string
	Email           string
	SchoolID        string
}

// LoginInput содержит данные для входа: email или телефон и пароль.
type LoginInput struct {
	Identifier string
	Password   string
}

// SessionMeta описывает клиента, открывшего сессию.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// AuthResult возвращает итог регистрации или входа.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// NewAuthService создаёт сервис аутентификации. welcome может быть nil.
func NewAuthService(users UserStore, sessions SessionStore, otp OTPProvider, tokenManager *TokenManager, welcome WelcomeSender) *AuthService {
	return &AuthService{
		users:        users,
		sessions:     sessions,
		otp:          otp,
		tokenManager: tokenManager,
		welcome:      welcome,
		bcryptCost:   bcrypt.DefaultCost,
		now:          time.Now,
		async:        goroutine.SafeGo,
	}
}

// CheckPhoneAvailability сообщает, свободен ли номер.
func (s *AuthService) CheckPhoneAvailability(ctx context.Context, phone string) (bool, error) {
	exists, err := s.users.ExistsByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// SendRegistrationOTP выдаёт код на ещё не зарегистрированный номер.
func (s *AuthService) SendRegistrationOTP(ctx context.Context, phone string) (*Issued, error) {
	phone = strings.TrimSpace(phone)

	exists, err := s.users.ExistsByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrPhoneTaken
	}

	return s.otp.Issue(ctx, phone, models.OTPChannelPhone)
}

// Register создаёт пользователя после повторной проверки OTP на сервере.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (*AuthResult, error) {
	// Несовпадение паролей проверяется до любого обращения к OTP.
	if in.Password != in.ConfirmPassword {
		return nil, apperror.ErrPasswordMismatch
	}

	phone := strings.TrimSpace(in.PhoneNumber)
	email := models.NormalizeIdentifier(in.Email)

	exists, err := s.users.ExistsByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrPhoneTaken
	}

	if email != "" {
		exists, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperror.ErrEmailTaken
		}
	}

	// Код гасится только после создания пользователя: проигравший гонку за телефон его не теряет.
	if _, err := s.otp.Verify(ctx, phone, in.OTP); err != nil {
		return nil, err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	user := &models.User{
		Name:            name,
		DisplayName:     name,
		PhoneNumber:     phone,
		PasswordHash:    string(passHash),
		SchoolIDURL:     in.SchoolID,
		IsPhoneVerified: true,
	}
	if email != "" {
		user.Email = &email
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrPhoneExists):
			return nil, apperror.ErrPhoneTaken
		case errors.Is(err, repository.ErrEmailExists):
			return nil, apperror.ErrEmailTaken
		}
		return nil, err
	}

	if err := s.otp.Consume(ctx, phone, in.OTP); err != nil {
		logger.L().WithError(err).WithField("user_id", user.ID).Warn("auth service: код регистрации не погашен")
	}

	tokenPair, err := s.openSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	s.sendWelcome(user)

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Login проверяет учётные данные. Неизвестный пользователь и неверный пароль неразличимы.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta SessionMeta) (*AuthResult, error) {
	user, err := s.findByIdentifier(ctx, in.Identifier)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		// Сравниваем с фиктивным хешем, чтобы время ответа не выдавало наличие пользователя.
		_ = bcrypt.CompareHashAndPassword(s.dummyPasswordHash(), []byte(in.Password))
		return nil, apperror.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.L().WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("auth service: не удалось обновить last_login_at")
	}

	tokenPair, err := s.openSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// ForgotPassword выдаёт код сброса, если пользователь существует. Ответ не зависит от этого.
func (s *AuthService) ForgotPassword(ctx context.Context, identifier string) error {
	identifier = models.NormalizeIdentifier(identifier)

	if _, err := s.findByIdentifier(ctx, identifier); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logger.L().WithField("channel", models.ChannelFor(identifier)).Debug("auth service: сброс пароля для неизвестного идентификатора")
			return nil
		}
		return err
	}

	_, err := s.otp.Issue(ctx, identifier, models.ChannelFor(identifier))
	return err
}

// VerifyOTP проверяет код без погашения.
func (s *AuthService) VerifyOTP(ctx context.Context, identifier, code string) error {
	_, err := s.otp.Verify(ctx, models.NormalizeIdentifier(identifier), code)
	return err
}

// ResetPassword гасит код, меняет пароль и отзывает все сессии пользователя.
func (s *AuthService) ResetPassword(ctx context.Context, identifier, code, newPassword string) error {
	identifier = models.NormalizeIdentifier(identifier)

	if err := s.otp.Consume(ctx, identifier, code); err != nil {
		return err
	}

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperror.ErrUserNotFound
		}
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(passHash)); err != nil {
		return err
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return err
	}
	logger.L().WithFields(logrus.Fields{
		"user_id": user.ID,
		"revoked": revoked,
	}).Info("auth service: пароль сброшен")

	return nil
}

// ResendOTP повторно выдаёт код существующему пользователю или ещё не зарегистрированному номеру.
func (s *AuthService) ResendOTP(ctx context.Context, identifier string) error {
	identifier = models.NormalizeIdentifier(identifier)
	channel := models.ChannelFor(identifier)

	_, err := s.findByIdentifier(ctx, identifier)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUserNotFound):
		// Незарегистрированный email получить код не может, номер может (повтор регистрационного кода).
		if channel == models.OTPChannelEmail {
			return nil
		}
	default:
		return err
	}

	_, err = s.otp.Issue(ctx, identifier, channel)
	return err
}

// Refresh обменивает refresh токен на новую пару. Повторное использование заменённого
// токена отзывает все сессии пользователя.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (*TokenPair, error) {
	claims, err := s.tokenManager.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.ErrInvalidToken
		}
		return nil, err
	}

	if session.UserID != userID {
		return nil, apperror.ErrInvalidToken
	}

	if session.RevokedAt != nil {
		if session.ReplacedBy != nil {
			s.revokeFamily(ctx, userID, sessionID)
		}
		return nil, apperror.ErrInvalidToken
	}

	if !session.Active(s.now()) {
		return nil, apperror.ErrInvalidToken
	}

	tokenPair, next, err := s.newSession(userID, meta)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Rotate(ctx, sessionID, next); err != nil {
		if errors.Is(err, repository.ErrSessionNotActive) {
			// Сессию успели заменить параллельным запросом: это тоже повторное использование.
			s.revokeFamily(ctx, userID, sessionID)
			return nil, apperror.ErrInvalidToken
		}
		return nil, err
	}

	return tokenPair, nil
}

// Logout отзывает сессию предъявленного refresh токена. Повторный вызов безопасен.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokenManager.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		// Недействительный токен уже не открывает сессию.
		return nil
	}

	sessionID, err := claims.SessionID()
	if err != nil {
		return nil
	}

	return s.sessions.Revoke(ctx, sessionID)
}

// Me возвращает текущего пользователя со статистикой.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = models.NormalizeIdentifier(identifier)
	if models.ChannelFor(identifier) == models.OTPChannelEmail {
		return s.users.GetByEmail(ctx, identifier)
	}
	return s.users.GetByPhone(ctx, identifier)
}

// openSession выпускает пару токенов и сохраняет сессию refresh токена.
func (s *AuthService) openSession(ctx context.Context, userID uuid.UUID, meta SessionMeta) (*TokenPair, error) {
	tokenPair, session, err := s.newSession(userID, meta)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return tokenPair, nil
}

func (s *AuthService) newSession(userID uuid.UUID, meta SessionMeta) (*TokenPair, *models.Session, error) {
	tokenPair, refreshClaims, err := s.tokenManager.IssuePair(userID)
	if err != nil {
		return nil, nil, err
	}

	sessionID, err := refreshClaims.SessionID()
	if err != nil {
		return nil, nil, fmt.Errorf("auth service: некорректный jti: %w", err)
	}

	session := &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: refreshClaims.ExpiresAt.Time,
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		session.UserAgent = &ua
	}
	if meta.IP != "" {
		ip := meta.IP
		session.IPAddress = &ip
	}

	return tokenPair, session, nil
}

func (s *AuthService) revokeFamily(ctx context.Context, userID, sessionID uuid.UUID) {
	revoked, err := s.sessions.RevokeAllForUser(ctx, userID)
	entry := logger.L().WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
	})
	if err != nil {
		entry.WithError(err).Error("auth service: не удалось отозвать сессии после повторного использования токена")
		return
	}
	entry.WithField("revoked", revoked).Warn("auth service: повторное использование refresh токена, все сессии отозваны")
}

func (s *AuthService) sendWelcome(user *models.User) {
	if s.welcome == nil {
		return
	}
	phone, name := user.PhoneNumber, user.Name
	s.async(func() {
		ctx, cancel := context.WithTimeout(context.Background(), welcomeTimeout)
		defer cancel()
		if err := s.welcome.SendWelcome(ctx, phone, name); err != nil {
			logger.L().WithError(err).Warn("auth service: приветственное SMS не отправлено")
		}
	})
}

func (s *AuthService) dummyPasswordHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.bcryptCost)
	})
	return s.dummyHash
}
