package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-reservation/internal/infrastructure/notify"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/metrics"
)

// dispatchBatch は1回の巡回で送信するリマインダー数の上限
const dispatchBatch = 50

// DuePopper は発火時刻を迎えたリマインダーを取り出すインターフェース
type DuePopper interface {
	PopDue(ctx context.Context, asOf time.Time, limit int) ([]notify.DueReminder, error)
}

// ReminderDispatcher は発火時刻を迎えたリマインダーを送信するワーカー
type ReminderDispatcher struct {
	popper   DuePopper
	sender   notify.Sender
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewReminderDispatcher(popper DuePopper, sender notify.Sender, interval time.Duration) *ReminderDispatcher {
	return &ReminderDispatcher{
		popper:   popper,
		sender:   sender,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はディスパッチャを開始
func (d *ReminderDispatcher) Start(ctx context.Context) {
	logger.Info("リマインダーディスパッチャ開始", zap.Duration("interval", d.interval))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	defer close(d.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("リマインダーディスパッチャ停止（コンテキストキャンセル）")
			return
		case <-d.stopCh:
			logger.Info("リマインダーディスパッチャ停止（シグナル受信）")
			return
		case <-ticker.C:
			d.dispatch(ctx)
		}
	}
}

// Stop はディスパッチャを停止
func (d *ReminderDispatcher) Stop() {
	close(d.stopCh)
	<-d.doneCh
}

// dispatch は発火対象のリマインダーを取り出して順に送信する
// 送信失敗はログに残して続行する（リマインダーはベストエフォート）
func (d *ReminderDispatcher) dispatch(ctx context.Context) {
	log := logger.Get()

	due, err := d.popper.PopDue(ctx, d.now(), dispatchBatch)
	if err != nil {
		log.Error("発火対象リマインダーの取得に失敗", zap.Error(err))
		return
	}
	if len(due) == 0 {
		log.Debug("発火対象のリマインダーなし")
		return
	}

	sent := 0
	for _, r := range due {
		if err := d.sender.Send(ctx, r.Payload); err != nil {
			log.Error("リマインダー送信に失敗",
				zap.String("handle", r.Handle),
				zap.String("reservation_id", r.Payload.ReservationID),
				zap.Error(err))
			d.countOp("dispatch", "error")
			continue
		}
		d.countOp("dispatch", "success")
		sent++
	}
	log.Info("リマインダー送信完了", zap.Int("sent", sent), zap.Int("total", len(due)))
}

func (d *ReminderDispatcher) countOp(operation, status string) {
	if m := metrics.Get(); m != nil {
		m.ReminderOpsTotal.WithLabelValues(operation, status).Inc()
	}
}
