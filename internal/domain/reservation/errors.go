package reservation

import "errors"

// Reservation ドメインのエラー定義
//
// ErrOutOfWindow / ErrMisaligned / ErrSlotTaken は利用者が修正可能な
// バリデーションエラーとしてそのまま呼び出し元に返す。
// ErrInvalidTransition は状態遷移表に反する操作を表す。
var (
	ErrReservationNotFound = errors.New("予約が見つかりません")
	ErrInvalidTransition   = errors.New("許可されていない状態遷移です")
	ErrNotElapsed          = errors.New("予約の終了時刻をまだ過ぎていません")
	ErrOutOfWindow         = errors.New("予約開始時刻が営業時間または予約可能期間の範囲外です")
	ErrMisaligned          = errors.New("予約開始時刻がスロット境界に揃っていません")
	ErrSlotTaken           = errors.New("このスロットは既に予約されています")
	ErrVenueIDRequired     = errors.New("店舗IDは必須です")
	ErrUserIDRequired      = errors.New("ユーザーIDは必須です")
	ErrInvalidInterval     = errors.New("終了時刻は開始時刻より後である必要があります")
)
