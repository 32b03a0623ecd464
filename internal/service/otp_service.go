package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/quizzo-backend/internal/goroutine"
	"github.com/ignatzorin/quizzo-backend/internal/logger"
	"github.com/ignatzorin/quizzo-backend/internal/models"
	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
	"github.com/ignatzorin/quizzo-backend/internal/repository"
)

// OTPRepository описывает хранилище одноразовых кодов.
type OTPRepository interface {
	Create(ctx context.Context, rec *models.OTPRecord) error
	FindByCode(ctx context.Context, identifier, codeHash string) (*models.OTPRecord, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByIdentifier(ctx context.Context, identifier string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// OTPSender доставляет код пользователю по выбранному каналу.
type OTPSender interface {
	SendOTP(ctx context.Context, channel models.OTPChannel, identifier, code string) error
}

// Issued - результат выдачи кода.
type Issued struct {
	Code      string
	ExpiresAt time.Time
	Delivered bool
}

// OTPService выдаёт, проверяет и гасит одноразовые коды.
type OTPService struct {
	repo       OTPRepository
	sender     OTPSender
	ttl        time.Duration
	production bool
	now        func() time.Time
	generate   func() (string, error)
	onIssued   func(channel models.OTPChannel, delivered bool)
}

func NewOTPService(repo OTPRepository, sender OTPSender, ttl time.Duration, production bool) *OTPService {
	return &OTPService{
		repo:       repo,
		sender:     sender,
		ttl:        ttl,
		production: production,
		now:        time.Now,
		generate:   generateCode,
	}
}

// OnIssued задаёт наблюдателя за выдачей кодов (метрики).
func (s *OTPService) OnIssued(fn func(channel models.OTPChannel, delivered bool)) {
	s.onIssued = fn
}

// Issue заменяет прежний код идентификатора новым и отправляет его.
func (s *OTPService) Issue(ctx context.Context, identifier string, channel models.OTPChannel) (*Issued, error) {
	if err := s.repo.DeleteByIdentifier(ctx, identifier); err != nil {
		return nil, err
	}

	code, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("otp service: генерация кода: %w", err)
	}

	rec := &models.OTPRecord{
		Identifier: identifier,
		Channel:    channel,
		CodeHash:   hashCode(code),
		ExpiresAt:  s.now().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	issued := &Issued{Code: code, ExpiresAt: rec.ExpiresAt}

	if err := s.sender.SendOTP(ctx, channel, identifier, code); err != nil {
		s.observe(channel, false)
		if s.production {
			if delErr := s.repo.DeleteByID(ctx, rec.ID); delErr != nil {
				logger.L().WithError(delErr).Warn("otp: не удалось удалить недоставленный код")
			}
			return nil, apperror.Wrap(err, apperror.ErrOTPDelivery.Code, apperror.ErrOTPDelivery.Message)
		}
		// В разработке код остаётся действительным и попадает в лог.
		logger.L().WithFields(logrus.Fields{
			"identifier": identifier,
			"channel":    channel,
			"code":       code,
		}).WithError(err).Warn("otp: доставка не удалась, код выведен в лог")
		return issued, nil
	}

	issued.Delivered = true
	s.observe(channel, true)
	return issued, nil
}

func (s *OTPService) observe(channel models.OTPChannel, delivered bool) {
	if s.onIssued != nil {
		s.onIssued(channel, delivered)
	}
}

// Verify проверяет код, не гася его. Просроченная запись удаляется.
func (s *OTPService) Verify(ctx context.Context, identifier, code string) (*models.OTPRecord, error) {
	rec, err := s.repo.FindByCode(ctx, identifier, hashCode(code))
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return nil, apperror.ErrOTPNotFound
		}
		return nil, err
	}

	if rec.Expired(s.now()) {
		if err := s.repo.DeleteByID(ctx, rec.ID); err != nil {
			logger.L().WithError(err).Warn("otp: не удалось удалить просроченный код")
		}
		return nil, apperror.ErrOTPExpired
	}

	return rec, nil
}

// Consume проверяет код и удаляет его.
func (s *OTPService) Consume(ctx context.Context, identifier, code string) error {
	rec, err := s.Verify(ctx, identifier, code)
	if err != nil {
		return err
	}
	return s.repo.DeleteByID(ctx, rec.ID)
}

// Sweep удаляет все истёкшие записи.
func (s *OTPService) Sweep(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

// StartCleanup запускает периодическую очистку до отмены ctx.
func (s *OTPService) StartCleanup(ctx context.Context, interval time.Duration) {
	goroutine.Every(ctx, interval, func(ctx context.Context) {
		n, err := s.Sweep(ctx)
		if err != nil {
			logger.L().WithError(err).Warn("otp: ошибка очистки")
			return
		}
		if n > 0 {
			logger.L().WithField("deleted", n).Debug("otp: удалены истёкшие коды")
		}
	})
}

var codeUpperBound = big.NewInt(1_000_000)

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeUpperBound)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
