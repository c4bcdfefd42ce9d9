package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/logger"
)

// Sender は発火時刻を迎えたリマインダーをユーザーへ届ける
type Sender interface {
	Send(ctx context.Context, payload notification.Payload) error
}

// NopSender は送信先が未設定の環境向けのSender実装
// 送信内容をログに残すだけで、常に成功する
type NopSender struct{}

var _ Sender = (*NopSender)(nil)

func NewNopSender() *NopSender {
	return &NopSender{}
}

func (s *NopSender) Send(_ context.Context, payload notification.Payload) error {
	logger.Info("リマインダー送信（nop）",
		zap.String("reservation_id", payload.ReservationID),
		zap.String("recipient", payload.Recipient),
		zap.String("title", payload.Title))
	return nil
}
