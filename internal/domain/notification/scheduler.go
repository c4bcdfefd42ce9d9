package notification

import (
	"context"
	"errors"
	"time"
)

// 通知コラボレータのエラー定義
var (
	ErrReminderNotFound = errors.New("リマインダーが見つかりません")
	ErrScheduleFailed   = errors.New("リマインダーの登録に失敗しました")
)

// Payload はリマインダー通知の内容を表す
type Payload struct {
	ReservationID string `json:"reservation_id"`
	VenueName     string `json:"venue_name"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	Recipient     string `json:"recipient"`
}

// Scheduler はリマインダー通知を予約・取消する外部コラボレータのインターフェース
// 戻り値のハンドルは不透明な識別子で、取消時にそのまま渡す
type Scheduler interface {
	// Schedule は fireAt に発火するリマインダーを登録し、ハンドルを返す
	Schedule(ctx context.Context, fireAt time.Time, payload Payload) (string, error)

	// Cancel は登録済みリマインダーを取り消す
	// 既に発火済み・存在しないハンドルの取消は ErrReminderNotFound
	Cancel(ctx context.Context, handle string) error
}
