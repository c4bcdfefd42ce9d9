package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Insert は新しい予約を作成する（トランザクション必須）
	// 同一店舗のアクティブ予約と区間が重なる場合は ErrSlotTaken を返す
	// （排他制約による判定。これが競合チェックの最終的な正）
	Insert(ctx context.Context, tx transaction.Tx, r *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetByIDForUpdate はIDから予約を行ロック付きで取得する（トランザクション必須）
	// 同一予約への状態遷移を直列化するために使用する
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)

	// GetByUserID はユーザーIDから予約一覧を取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Reservation, error)

	// ListActiveInRange は指定区間 [from, to) と重なるアクティブ予約を取得する
	// 区間の重なりで判定するため、日付境界をまたぐ予約も漏れない
	ListActiveInRange(ctx context.Context, venueID string, from, to time.Time) ([]*Reservation, error)

	// Update は予約の状態を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, r *Reservation) error

	// UpdateReminderID はリマインダーハンドルのみを更新する
	// 状態遷移とは独立しており、通知側の失敗が遷移を巻き戻さないようにする
	UpdateReminderID(ctx context.Context, id string, reminderID *string) error

	// ListElapsedConfirmed は終了時刻を過ぎた confirmed 予約を取得する
	ListElapsedConfirmed(ctx context.Context, asOf time.Time, limit int) ([]*Reservation, error)
}
