package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignatzorin/quizzo-backend/internal/models"
)

// ErrNotConfigured возвращается, если транспорт для канала не настроен.
var ErrNotConfigured = errors.New("notify: transport not configured")

// SMSSender отправляет SMS на номер в формате E.164.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailSender отправляет HTML письмо с текстовой альтернативой.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// Dispatcher выбирает транспорт по каналу OTP. Любой из транспортов может быть nil.
type Dispatcher struct {
	sms   SMSSender
	email EmailSender
}

func NewDispatcher(sms SMSSender, email EmailSender) *Dispatcher {
	return &Dispatcher{sms: sms, email: email}
}

// SendOTP доставляет код: телефон через SMS, email через почту.
func (d *Dispatcher) SendOTP(ctx context.Context, channel models.OTPChannel, identifier, code string) error {
	switch channel {
	case models.OTPChannelPhone:
		if d.sms == nil {
			return ErrNotConfigured
		}
		return d.sms.SendSMS(ctx, identifier, OTPSMSText(code))
	case models.OTPChannelEmail:
		if d.email == nil {
			return ErrNotConfigured
		}
		return d.email.SendEmail(ctx, identifier, OTPEmailSubject, OTPEmailHTML(code), OTPEmailText(code))
	default:
		return fmt.Errorf("notify: неизвестный канал %q", channel)
	}
}

// SendWelcome отправляет приветственное SMS новому игроку.
func (d *Dispatcher) SendWelcome(ctx context.Context, phone, name string) error {
	if d.sms == nil {
		return ErrNotConfigured
	}
	return d.sms.SendSMS(ctx, phone, WelcomeSMSText(name))
}
