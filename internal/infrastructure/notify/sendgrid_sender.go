package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/sanosuguru/go-venue-reservation/internal/config"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/notification"
)

// SendGridSender はSendGrid経由でリマインダーメールを送信する
type SendGridSender struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

var _ Sender = (*SendGridSender)(nil)

func NewSendGridSender(cfg *config.SendGridConfig) *SendGridSender {
	return &SendGridSender{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		fromName: cfg.FromName,
		fromAddr: cfg.FromEmail,
	}
}

func (s *SendGridSender) Send(ctx context.Context, payload notification.Payload) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail("", payload.Recipient)
	message := mail.NewSingleEmail(from, payload.Title, to, payload.Body, "")

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("SendGrid送信に失敗: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SendGridがエラーを返却 status=%d body=%s", resp.StatusCode, resp.Body)
	}
	return nil
}
