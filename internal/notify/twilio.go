package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/ignatzorin/quizzo-backend/internal/config"
	"github.com/ignatzorin/quizzo-backend/internal/logger"
)

// messageCreator - часть Twilio API, которой пользуется TwilioSender.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender отправляет SMS через Twilio REST API.
type TwilioSender struct {
	api  messageCreator
	from string
}

// NewTwilioSender создаёт отправителя. Без полного набора реквизитов возвращает ErrNotConfigured.
func NewTwilioSender(cfg config.TwilioConfig) (*TwilioSender, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioSender{api: client.Api, from: cfg.FromNumber}, nil
}

// SendSMS отправляет сообщение. Twilio клиент не принимает context, поэтому
// отменённый ctx проверяется до запроса.
func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("notify: twilio: %w", err)
	}

	entry := logger.L().WithField("to", to)
	if resp != nil && resp.Sid != nil {
		entry = entry.WithFields(logrus.Fields{"sid": *resp.Sid})
	}
	entry.Info("notify: SMS отправлено")
	return nil
}
