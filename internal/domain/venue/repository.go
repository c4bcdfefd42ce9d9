package venue

import "context"

// Repository は店舗リポジトリのインターフェース
// 予約コアからは読み取り専用のディレクトリとして扱う
type Repository interface {
	// Create は新しい店舗を作成する
	Create(ctx context.Context, v *Venue) error

	// GetByID はIDから店舗を取得する
	GetByID(ctx context.Context, id string) (*Venue, error)

	// List は店舗一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Venue, error)

	// Update は店舗を更新する
	Update(ctx context.Context, v *Venue) error
}
