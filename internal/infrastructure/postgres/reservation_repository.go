package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/transaction"
)

type reservationRow struct {
	ID         string    `db:"id"`
	VenueID    string    `db:"venue_id"`
	UserID     string    `db:"user_id"`
	StartAt    time.Time `db:"start_at"`
	EndAt      time.Time `db:"end_at"`
	Status     string    `db:"status"`
	ReminderID *string   `db:"reminder_id"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: r.ID, VenueID: r.VenueID, UserID: r.UserID,
		StartAt: r.StartAt, EndAt: r.EndAt,
		Status: reservation.Status(r.Status), ReminderID: r.ReminderID,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const reservationColumns = `id, venue_id, user_id, start_at, end_at, status, reminder_id, created_at, updated_at`

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Insert は予約を作成する
// アクティブ予約の区間重なりは reservations_no_overlap 排他制約が防ぐ。
// 制約違反（23P01）は ErrSlotTaken として返す。事前の空き確認と
// このINSERTの間に割り込んだ同一スロットの予約もここで確実に弾かれる
func (r *ReservationRepository) Insert(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	query := `INSERT INTO reservations (venue_id, user_id, start_at, end_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := sqlxTx.QueryRowContext(ctx, query,
		res.VenueID, res.UserID, res.StartAt, res.EndAt, string(res.Status), res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) {
			// 23P01: exclusion_violation, 23505: unique_violation
			if pgErr.Code == "23P01" || pgErr.Code == "23505" {
				return reservation.ErrSlotTaken
			}
		}
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// GetByIDForUpdate は行ロック付きで予約を取得する
// 同一予約に対する状態遷移の read-check-write を直列化する
func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, fmt.Errorf("トランザクションが不正です")
	}
	var row reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	if err := sqlxTx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE user_id = $1 ORDER BY start_at ASC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

// ListActiveInRange は [from, to) と区間が重なるアクティブ予約を取得する
// 半開区間の重なり判定（start_at < to AND end_at > from）なので、
// 問い合わせ日の境界をまたぐ予約も取りこぼさない
func (r *ReservationRepository) ListActiveInRange(ctx context.Context, venueID string, from, to time.Time) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE venue_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_at < $3 AND end_at > $2
		ORDER BY start_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query, venueID, from, to); err != nil {
		return nil, fmt.Errorf("アクティブ予約取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *ReservationRepository) Update(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	query := `UPDATE reservations SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := sqlxTx.ExecContext(ctx, query, string(res.Status), res.UpdatedAt, res.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

// UpdateReminderID はリマインダーハンドルのみを更新する
// 通知側の失敗を状態遷移に波及させないよう、遷移とは別トランザクションで呼ぶ
func (r *ReservationRepository) UpdateReminderID(ctx context.Context, id string, reminderID *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET reminder_id = $1, updated_at = NOW() WHERE id = $2`,
		reminderID, id)
	if err != nil {
		return fmt.Errorf("リマインダーハンドル更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) ListElapsedConfirmed(ctx context.Context, asOf time.Time, limit int) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE status = 'confirmed' AND end_at < $1 ORDER BY end_at ASC LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, asOf, limit); err != nil {
		return nil, fmt.Errorf("終了済み予約取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
