package application

import (
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/logger"
)

// LifecycleEvent は予約の状態遷移を表すイベント
// リマインダーの登録・取消はこのイベントを購読するワーカーが行い、
// ライフサイクル管理と通知バックエンドを分離する
type LifecycleEvent struct {
	Reservation *reservation.Reservation
	VenueName   string
	From        reservation.Status
	To          reservation.Status
	OccurredAt  time.Time
}

// EventPublisher はライフサイクルイベントの発行インターフェース
type EventPublisher interface {
	Publish(ev LifecycleEvent)
}

// ChannelBus はチャネルベースのイベントバス
// Publish はブロックせず、バッファ満杯時はイベントを破棄してログに残す
// （リマインダーは取りこぼしても予約の整合性には影響しない）
type ChannelBus struct {
	ch chan LifecycleEvent
}

// NewChannelBus は指定バッファ長のイベントバスを作成する
func NewChannelBus(buffer int) *ChannelBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelBus{ch: make(chan LifecycleEvent, buffer)}
}

// Publish はイベントを発行する
func (b *ChannelBus) Publish(ev LifecycleEvent) {
	select {
	case b.ch <- ev:
	default:
		logger.Warn("ライフサイクルイベントを破棄しました",
			zap.String("reservation_id", ev.Reservation.ID),
			zap.String("to", string(ev.To)),
		)
	}
}

// Events は購読用チャネルを返す
func (b *ChannelBus) Events() <-chan LifecycleEvent {
	return b.ch
}

// Close はバスを閉じる（発行側が停止した後に呼ぶ）
func (b *ChannelBus) Close() {
	close(b.ch)
}

var _ EventPublisher = (*ChannelBus)(nil)
