package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/venue"
	redisinfra "github.com/sanosuguru/go-venue-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/metrics"
)

// completeSweepBatch は1回のスイープで処理する予約数の上限
const completeSweepBatch = 100

// BookingService は予約の検証・作成とライフサイクル（状態遷移）を管理する
type BookingService struct {
	txManager       transaction.Manager
	reservationRepo reservation.Repository
	venueRepo       venue.Repository
	lockManager     redisinfra.LockManagerInterface
	cache           redisinfra.AvailabilityCacheInterface
	publisher       EventPublisher
	maxAdvance      time.Duration
	now             func() time.Time
}

func NewBookingService(
	txManager transaction.Manager,
	rr reservation.Repository,
	vr venue.Repository,
	lm redisinfra.LockManagerInterface,
	cache redisinfra.AvailabilityCacheInterface,
	pub EventPublisher,
	maxAdvance time.Duration,
) *BookingService {
	return &BookingService{
		txManager:       txManager,
		reservationRepo: rr,
		venueRepo:       vr,
		lockManager:     lm,
		cache:           cache,
		publisher:       pub,
		maxAdvance:      maxAdvance,
		now:             time.Now,
	}
}

type CreateReservationInput struct {
	VenueID string
	UserID  string
	StartAt time.Time
}

// CreateReservation は予約リクエストを検証して pending 予約を作成する
//
// 空き状況の事前チェックは楽観的な先回りに過ぎず、最終的な競合判定は
// INSERT 時のDB排他制約が行う。2つのリクエストが同一スロットを同時に
// 通過しても、成功するのは片方だけで、もう片方は ErrSlotTaken を受け取る
func (s *BookingService) CreateReservation(ctx context.Context, input CreateReservationInput) (*reservation.Reservation, error) {
	v, err := s.venueRepo.GetByID(ctx, input.VenueID)
	if err != nil {
		return nil, fmt.Errorf("店舗取得に失敗: %w", err)
	}

	if err := schedule.ValidateStart(v, input.StartAt, s.now(), s.maxAdvance); err != nil {
		s.countBooking(err)
		return nil, err
	}

	// 分散ロックで同一スロットへの同時処理を減らす（先回りガード）
	if s.lockManager != nil {
		lockKey := fmt.Sprintf("venue:%s:slot:%d", v.ID, input.StartAt.Unix())
		lock, err := s.lockManager.AcquireLockWithRetry(ctx, lockKey, 10*time.Second, 3, 100*time.Millisecond)
		if err != nil {
			if errors.Is(err, redisinfra.ErrLockNotAcquired) {
				s.countBooking(reservation.ErrSlotTaken)
				return nil, fmt.Errorf("このスロットは他のユーザーが処理中です: %w", reservation.ErrSlotTaken)
			}
			return nil, fmt.Errorf("ロック取得に失敗: %w", err)
		}
		defer lock.Release(ctx)
	}

	res := reservation.NewReservation(v.ID, input.UserID, input.StartAt, v.Granularity)
	if err := res.Validate(); err != nil {
		return nil, err
	}

	// 楽観的な事前チェック（呼び出し元が持つ古いスロット一覧は信用しない）
	existing, err := s.reservationRepo.ListActiveInRange(ctx, v.ID, res.StartAt, res.EndAt)
	if err != nil {
		return nil, fmt.Errorf("空き状況の確認に失敗: %w", err)
	}
	if len(existing) > 0 {
		s.countBooking(reservation.ErrSlotTaken)
		return nil, reservation.ErrSlotTaken
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := s.reservationRepo.Insert(ctx, tx, res); err != nil {
		s.countBooking(err)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}

	s.invalidateAvailability(ctx, v, res.StartAt)
	s.countBooking(nil)
	s.trackActive(reservation.StatusPending, +1)
	return res, nil
}

// ConfirmReservation は予約を確定する（pending → confirmed）
// 確定イベントを発行し、リマインダー登録はワーカーに委ねる
func (s *BookingService) ConfirmReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	res, from, err := s.transition(ctx, id, func(r *reservation.Reservation) error {
		return r.Confirm()
	})
	if err != nil {
		s.countTransition(reservation.StatusConfirmed, err)
		return nil, err
	}
	s.countTransition(reservation.StatusConfirmed, nil)
	s.trackActive(from, -1)
	s.trackActive(reservation.StatusConfirmed, +1)
	s.publish(ctx, res, from)
	return res, nil
}

// CancelReservation は予約をキャンセルする（pending|confirmed → cancelled）
// レコードは保持し、リマインダー取消はイベント経由で行う
func (s *BookingService) CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	res, from, err := s.transition(ctx, id, func(r *reservation.Reservation) error {
		return r.Cancel()
	})
	if err != nil {
		s.countTransition(reservation.StatusCancelled, err)
		return nil, err
	}
	s.countTransition(reservation.StatusCancelled, nil)
	s.trackActive(from, -1)

	if v, verr := s.venueRepo.GetByID(ctx, res.VenueID); verr == nil {
		s.invalidateAvailability(ctx, v, res.StartAt)
	}
	s.publish(ctx, res, from)
	return res, nil
}

// CompleteElapsedReservations は終了時刻を過ぎた confirmed 予約を completed に遷移させる
// 定期スイープから呼ばれる。一部の失敗は他の予約の処理を妨げない
func (s *BookingService) CompleteElapsedReservations(ctx context.Context) (int, error) {
	now := s.now()
	elapsed, err := s.reservationRepo.ListElapsedConfirmed(ctx, now, completeSweepBatch)
	if err != nil {
		return 0, fmt.Errorf("終了済み予約取得に失敗: %w", err)
	}

	count := 0
	for _, candidate := range elapsed {
		res, from, err := s.transition(ctx, candidate.ID, func(r *reservation.Reservation) error {
			return r.Complete(now)
		})
		if err != nil {
			// 一覧取得からロック取得までの間に別の遷移が入った場合もここに来る
			if !errors.Is(err, reservation.ErrInvalidTransition) {
				logger.Error("予約の完了遷移に失敗",
					zap.String("reservation_id", candidate.ID), zap.Error(err))
			}
			continue
		}
		s.countTransition(reservation.StatusCompleted, nil)
		s.trackActive(from, -1)
		s.publish(ctx, res, from)
		count++
	}
	return count, nil
}

// transition は行ロック付きの read-check-write で状態遷移を適用する
// 同一予約への遷移は直列化され、別予約同士は並行に処理できる
func (s *BookingService) transition(ctx context.Context, id string, apply func(*reservation.Reservation) error) (*reservation.Reservation, reservation.Status, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	res, err := s.reservationRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, "", err
	}
	from := res.Status
	if err := apply(res); err != nil {
		return nil, "", err
	}
	if err := s.reservationRepo.Update(ctx, tx, res); err != nil {
		return nil, "", err
	}
	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("コミットに失敗: %w", err)
	}
	return res, from, nil
}

func (s *BookingService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.reservationRepo.GetByID(ctx, id)
}

func (s *BookingService) GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.reservationRepo.GetByUserID(ctx, userID, limit, offset)
}

// publish は状態遷移イベントを発行する
// 店舗名はリマインダー本文用。取得に失敗してもイベント自体は発行する
func (s *BookingService) publish(ctx context.Context, res *reservation.Reservation, from reservation.Status) {
	if s.publisher == nil {
		return
	}
	venueName := ""
	if v, err := s.venueRepo.GetByID(ctx, res.VenueID); err == nil {
		venueName = v.Name
	}
	s.publisher.Publish(LifecycleEvent{
		Reservation: res,
		VenueName:   venueName,
		From:        from,
		To:          res.Status,
		OccurredAt:  s.now(),
	})
}

func (s *BookingService) invalidateAvailability(ctx context.Context, v *venue.Venue, startAt time.Time) {
	if s.cache == nil {
		return
	}
	loc, err := v.Location()
	if err != nil {
		return
	}
	day := startAt.In(loc).Format("2006-01-02")
	if err := s.cache.Invalidate(ctx, v.ID, day); err != nil {
		logger.Warn("空き状況キャッシュの無効化に失敗",
			zap.String("venue_id", v.ID), zap.String("day", day), zap.Error(err))
	}
}

func (s *BookingService) countBooking(err error) {
	m := metrics.Get()
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.BookingsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, reservation.ErrSlotTaken):
		m.BookingsTotal.WithLabelValues("slot_taken").Inc()
	case errors.Is(err, reservation.ErrOutOfWindow):
		m.BookingsTotal.WithLabelValues("out_of_window").Inc()
	case errors.Is(err, reservation.ErrMisaligned):
		m.BookingsTotal.WithLabelValues("misaligned").Inc()
	default:
		m.BookingsTotal.WithLabelValues("error").Inc()
	}
}

// trackActive はアクティブ予約数のゲージを増減する
func (s *BookingService) trackActive(status reservation.Status, delta float64) {
	m := metrics.Get()
	if m == nil {
		return
	}
	if status != reservation.StatusPending && status != reservation.StatusConfirmed {
		return
	}
	m.ActiveReservations.WithLabelValues(string(status)).Add(delta)
}

func (s *BookingService) countTransition(to reservation.Status, err error) {
	m := metrics.Get()
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.TransitionsTotal.WithLabelValues(string(to), "success").Inc()
	case errors.Is(err, reservation.ErrInvalidTransition):
		m.TransitionsTotal.WithLabelValues(string(to), "invalid").Inc()
	default:
		m.TransitionsTotal.WithLabelValues(string(to), "error").Inc()
	}
}
