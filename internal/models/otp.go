package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OTPChannel определяет, куда доставляется одноразовый код.
type OTPChannel string

const (
	OTPChannelEmail OTPChannel = "email"
	OTPChannelPhone OTPChannel = "phone"
)

// ChannelFor определяет канал по идентификатору: с "@" это email, иначе телефон.
func ChannelFor(identifier string) OTPChannel {
	if strings.Contains(identifier, "@") {
		return OTPChannelEmail
	}
	return OTPChannelPhone
}

// NormalizeIdentifier приводит email к нижнему регистру и обрезает пробелы.
func NormalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if ChannelFor(identifier) == OTPChannelEmail {
		return strings.ToLower(identifier)
	}
	return identifier
}

// OTPRecord хранит выданный одноразовый код. Сам код не хранится, только его SHA-256.
type OTPRecord struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Identifier string     `db:"identifier" json:"identifier"`
	Channel    OTPChannel `db:"channel" json:"channel"`
	CodeHash   string     `db:"code_hash" json:"-"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expiresAt"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
}

// Expired сообщает, истёк ли код к моменту now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
