package venue

import "errors"

// Venue ドメインのエラー定義
var (
	ErrVenueNotFound      = errors.New("店舗が見つかりません")
	ErrVenueNameRequired  = errors.New("店舗名は必須です")
	ErrInvalidTimezone    = errors.New("タイムゾーンが不正です")
	ErrInvalidGranularity = errors.New("スロット粒度は分単位の正の値である必要があります")
	ErrHoursRequired      = errors.New("営業時間は必須です")
	ErrInvalidHours       = errors.New("営業時間の開店時刻は閉店時刻より前である必要があります")
)
