package reservation

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Reservation は予約エンティティを表す
// [StartAt, EndAt) の半開区間で1スロットを占有する
type Reservation struct {
	ID         string
	VenueID    string
	UserID     string
	StartAt    time.Time
	EndAt      time.Time
	Status     Status
	ReminderID *string // 通知コラボレータが発行するハンドル
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewReservation は新しい予約を作成する
// EndAt は常に StartAt + granularity（固定長スロット）
func NewReservation(venueID, userID string, startAt time.Time, granularity time.Duration) *Reservation {
	now := time.Now()
	return &Reservation{
		VenueID:   venueID,
		UserID:    userID,
		StartAt:   startAt,
		EndAt:     startAt.Add(granularity),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive は予約が競合判定の対象かを返す（pending または confirmed）
func (r *Reservation) IsActive() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// IsTerminal は予約が終端状態かを返す
func (r *Reservation) IsTerminal() bool {
	return r.Status == StatusCancelled || r.Status == StatusCompleted
}

// Confirm は予約を確定する（pending → confirmed）
func (r *Reservation) Confirm() error {
	if r.Status != StatusPending {
		return ErrInvalidTransition
	}
	r.Status = StatusConfirmed
	r.UpdatedAt = time.Now()
	return nil
}

// Cancel は予約をキャンセルする（pending|confirmed → cancelled）
// レコードは保持され、ハードデリートはしない
func (r *Reservation) Cancel() error {
	if !r.IsActive() {
		return ErrInvalidTransition
	}
	r.Status = StatusCancelled
	r.UpdatedAt = time.Now()
	return nil
}

// Complete は予約を完了する（confirmed → completed）
// EndAt を過ぎている場合のみ有効
func (r *Reservation) Complete(now time.Time) error {
	if r.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	if now.Before(r.EndAt) {
		return ErrNotElapsed
	}
	r.Status = StatusCompleted
	r.UpdatedAt = time.Now()
	return nil
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.VenueID == "" {
		return ErrVenueIDRequired
	}
	if r.UserID == "" {
		return ErrUserIDRequired
	}
	if !r.EndAt.After(r.StartAt) {
		return ErrInvalidInterval
	}
	return nil
}
