package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/quizzo-backend/internal/models"
	"github.com/ignatzorin/quizzo-backend/internal/repository/common"
)

var ErrOTPNotFound = fmt.Errorf("otp record: %w", common.ErrNotFound)

// OTPRepository хранит выданные одноразовые коды в таблице otp_records.
type OTPRepository struct {
	db *sqlx.DB
}

func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

func (r *OTPRepository) Create(ctx context.Context, rec *models.OTPRecord) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO otp_records (identifier, channel, code_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, rec.Identifier, rec.Channel, rec.CodeHash, rec.ExpiresAt).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("otp repository: create %w", err)
	}
	return nil
}

// FindByCode ищет запись по идентификатору и хешу кода. Срок годности не проверяется.
func (r *OTPRepository) FindByCode(ctx context.Context, identifier, codeHash string) (*models.OTPRecord, error) {
	rec, err := common.GetOne[models.OTPRecord](ctx, r.db, ErrOTPNotFound, `
		SELECT id, identifier, channel, code_hash, expires_at, created_at
		FROM otp_records
		WHERE identifier = $1 AND code_hash = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, identifier, codeHash)
	if err != nil && !errors.Is(err, ErrOTPNotFound) {
		return nil, fmt.Errorf("otp repository: find %w", err)
	}
	return rec, err
}

func (r *OTPRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("otp repository: delete %w", err)
	}
	return nil
}

// DeleteByIdentifier удаляет все коды идентификатора (перед выдачей нового).
func (r *OTPRepository) DeleteByIdentifier(ctx context.Context, identifier string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE identifier = $1`, identifier); err != nil {
		return fmt.Errorf("otp repository: delete by identifier %w", err)
	}
	return nil
}

// DeleteExpired удаляет записи, истёкшие до before, и возвращает их количество.
func (r *OTPRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_records WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("otp repository: delete expired %w", err)
	}
	return common.RowsAffected(res)
}
