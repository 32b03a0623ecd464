package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/quizzo-backend/internal/models"
	"github.com/ignatzorin/quizzo-backend/internal/repository/common"
)

var (
	ErrSessionNotFound = fmt.Errorf("session: %w", common.ErrNotFound)
	// ErrSessionNotActive возвращается, если сессию уже отозвали или заменили.
	ErrSessionNotActive = errors.New("session is not active")
)

const sessionColumns = `id, user_id, user_agent, ip_address, expires_at, revoked_at, replaced_by, created_at`

// SessionRepository хранит refresh-сессии в таблице refresh_sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository создаёт репозиторий сессий.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create сохраняет новую сессию. ID задаётся вызывающей стороной (это jti токена).
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	return insertSession(ctx, r.db, s)
}

// GetByID возвращает сессию по jti.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := common.GetOne[models.Session](ctx, r.db, ErrSessionNotFound, `SELECT `+sessionColumns+` FROM refresh_sessions WHERE id = $1`, id)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("session repository: get %w", err)
	}
	return s, err
}

// Rotate отзывает старую сессию, помечает её заменённой и сохраняет новую в одной транзакции.
// Если старая сессия уже неактивна, возвращает ErrSessionNotActive.
func (r *SessionRepository) Rotate(ctx context.Context, oldID uuid.UUID, next *models.Session) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE refresh_sessions
			SET revoked_at = NOW(), replaced_by = $2
			WHERE id = $1 AND revoked_at IS NULL
		`, oldID, next.ID)
		if err != nil {
			return fmt.Errorf("session repository: revoke on rotate %w", err)
		}
		n, err := common.RowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrSessionNotActive
		}
		return insertSession(ctx, tx, next)
	})
}

// Revoke отзывает одну сессию. Повторный вызов не является ошибкой.
func (r *SessionRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id); err != nil {
		return fmt.Errorf("session repository: revoke %w", err)
	}
	return nil
}

// RevokeAllForUser отзывает все активные сессии пользователя.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("session repository: revoke all %w", err)
	}
	return common.RowsAffected(res)
}

func insertSession(ctx context.Context, ex sqlx.ExtContext, s *models.Session) error {
	err := ex.QueryRowxContext(ctx, `
		INSERT INTO refresh_sessions (id, user_id, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, s.ID, s.UserID, s.UserAgent, s.IPAddress, s.ExpiresAt).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("session repository: create %w", err)
	}
	return nil
}
