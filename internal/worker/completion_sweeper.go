package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-reservation/internal/pkg/logger"
)

// ReservationCompleter は終了時刻を過ぎた予約を完了させるインターフェース
type ReservationCompleter interface {
	CompleteElapsedReservations(ctx context.Context) (int, error)
}

// CompletionSweeper は終了済みのconfirmed予約をcompletedへ掃き出すワーカー
type CompletionSweeper struct {
	bookingService ReservationCompleter
	interval       time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// NewCompletionSweeper は新しいスイーパーを作成
func NewCompletionSweeper(bs ReservationCompleter, interval time.Duration) *CompletionSweeper {
	return &CompletionSweeper{
		bookingService: bs,
		interval:       interval,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start はスイーパーを開始
func (s *CompletionSweeper) Start(ctx context.Context) {
	logger.Info("完了スイーパー開始", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("完了スイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("完了スイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (s *CompletionSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep は終了済み予約を完了へ遷移させる
func (s *CompletionSweeper) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("完了スイープ開始")

	count, err := s.bookingService.CompleteElapsedReservations(ctx)
	if err != nil {
		log.Error("完了スイープに失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("予約を完了へ遷移", zap.Int("count", count))
	} else {
		log.Debug("完了対象の予約なし")
	}
}
