package transaction

import "context"

// Tx はトランザクションを表すインターフェース
// 予約の競合チェックと書き込みを1つの原子的操作にまとめるための抽象化で、
// ドメイン層がインフラ層（sqlx等）に依存しないようにする
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}
