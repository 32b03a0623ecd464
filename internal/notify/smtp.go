package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/ignatzorin/quizzo-backend/internal/config"
	"github.com/ignatzorin/quizzo-backend/internal/logger"
)

const senderName = "Quizzo App"

// SMTPSender отправляет письма через SMTP сервер с авторизацией PLAIN.
type SMTPSender struct {
	from string
	send func(ctx context.Context, msgs ...*mail.Msg) error
}

// NewSMTPSender создаёт отправителя. Без хоста и учётных данных возвращает ErrNotConfigured.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.User),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: smtp клиент: %w", err)
	}

	return &SMTPSender{from: cfg.User, send: client.DialAndSendWithContext}, nil
}

// SendEmail собирает письмо и отправляет его одним SMTP соединением.
func (s *SMTPSender) SendEmail(ctx context.Context, to, subject, htmlBody, textBody string) error {
	msg, err := s.buildMessage(to, subject, htmlBody, textBody)
	if err != nil {
		return err
	}

	if err := s.send(ctx, msg); err != nil {
		return fmt.Errorf("notify: smtp: %w", err)
	}

	logger.L().WithField("to", to).Info("notify: письмо отправлено")
	return nil
}

func (s *SMTPSender) buildMessage(to, subject, htmlBody, textBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(senderName, s.from); err != nil {
		return nil, fmt.Errorf("notify: адрес отправителя: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("notify: адрес получателя: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	if textBody != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, textBody)
	}
	return msg, nil
}
