package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-reservation/internal/application"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/metrics"
)

// ReminderHandleStore はリマインダーハンドルの永続化インターフェース
type ReminderHandleStore interface {
	GetByID(ctx context.Context, id string) (*reservation.Reservation, error)
	UpdateReminderID(ctx context.Context, id string, reminderID *string) error
}

// ReminderWorker は予約ライフサイクルイベントを購読し、リマインダーの
// 登録・取消をスケジューラへ反映する
//
// リマインダー操作は予約の状態遷移とは独立しており、ここでの失敗が
// 遷移を巻き戻すことはない。失敗はログとメトリクスに記録される
type ReminderWorker struct {
	events    <-chan application.LifecycleEvent
	scheduler notification.Scheduler
	store     ReminderHandleStore
	lead      time.Duration
	timeout   time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func NewReminderWorker(
	events <-chan application.LifecycleEvent,
	scheduler notification.Scheduler,
	store ReminderHandleStore,
	lead time.Duration,
	timeout time.Duration,
) *ReminderWorker {
	return &ReminderWorker{
		events:    events,
		scheduler: scheduler,
		store:     store,
		lead:      lead,
		timeout:   timeout,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はイベントループを開始する。イベントチャネルが閉じられるか
// 停止指示を受けるまでブロックする
func (w *ReminderWorker) Start(ctx context.Context) {
	logger.Info("リマインダーワーカー開始", zap.Duration("lead", w.lead))
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("リマインダーワーカー停止（コンテキストキャンセル）")
			return
		case <-w.stopCh:
			logger.Info("リマインダーワーカー停止（シグナル受信）")
			return
		case ev, ok := <-w.events:
			if !ok {
				logger.Info("リマインダーワーカー停止（イベントチャネル終了）")
				return
			}
			w.handle(ctx, ev)
		}
	}
}

// Stop はワーカーを即時停止する。チャネルに残ったイベントは処理されない
func (w *ReminderWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

// Wait はワーカーの終了を待つ。イベントチャネルを閉じてから呼ぶと、
// バッファに残ったイベントを処理し切ってから戻る
func (w *ReminderWorker) Wait() {
	<-w.doneCh
}

func (w *ReminderWorker) handle(ctx context.Context, ev application.LifecycleEvent) {
	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var err error
	switch ev.To {
	case reservation.StatusConfirmed:
		err = w.schedule(opCtx, ev)
	case reservation.StatusCancelled, reservation.StatusCompleted:
		err = w.cancel(opCtx, ev)
	default:
		return
	}
	if err != nil {
		logger.Error("リマインダー操作に失敗",
			zap.String("reservation_id", ev.Reservation.ID),
			zap.String("to", string(ev.To)),
			zap.Error(err))
	}
}

// schedule は確定予約のリマインダーを登録する
func (w *ReminderWorker) schedule(ctx context.Context, ev application.LifecycleEvent) error {
	res := ev.Reservation
	fireAt := res.StartAt.Add(-w.lead)
	if !fireAt.After(w.now()) {
		// 開始直前の確定はリマインド対象外
		logger.Debug("発火時刻が過去のためリマインダーを登録しない",
			zap.String("reservation_id", res.ID))
		w.countOp("schedule", "skipped")
		return nil
	}

	payload := notification.Payload{
		ReservationID: res.ID,
		VenueName:     ev.VenueName,
		Title:         "ご予約のリマインド",
		Body:          fmt.Sprintf("%s のご予約が %s に始まります", ev.VenueName, res.StartAt.Format("2006-01-02 15:04")),
		Recipient:     res.UserID,
	}

	handle, err := w.scheduler.Schedule(ctx, fireAt, payload)
	if err != nil {
		w.countOp("schedule", "error")
		return err
	}
	if err := w.store.UpdateReminderID(ctx, res.ID, &handle); err != nil {
		w.countOp("schedule", "error")
		return err
	}
	w.countOp("schedule", "success")
	return nil
}

// cancel は不要になったリマインダーを取り消す
//
// イベントが持つスナップショットは遷移トランザクション内で読まれたもので、
// 確定イベントのハンドル永続化より前の状態を映していることがある。
// 取りこぼしを防ぐため、ハンドルは必ずストアから読み直す
func (w *ReminderWorker) cancel(ctx context.Context, ev application.LifecycleEvent) error {
	res, err := w.store.GetByID(ctx, ev.Reservation.ID)
	if err != nil {
		w.countOp("cancel", "error")
		return err
	}
	if res.ReminderID == nil {
		return nil
	}

	if err := w.scheduler.Cancel(ctx, *res.ReminderID); err != nil {
		// 発火済み・取消済みは正常系として扱う
		if !errors.Is(err, notification.ErrReminderNotFound) {
			w.countOp("cancel", "error")
			return err
		}
	}
	if err := w.store.UpdateReminderID(ctx, res.ID, nil); err != nil {
		w.countOp("cancel", "error")
		return err
	}
	w.countOp("cancel", "success")
	return nil
}

func (w *ReminderWorker) countOp(operation, status string) {
	if m := metrics.Get(); m != nil {
		m.ReminderOpsTotal.WithLabelValues(operation, status).Inc()
	}
}
