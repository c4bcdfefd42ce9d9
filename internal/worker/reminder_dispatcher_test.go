package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-venue-reservation/internal/infrastructure/notify"
)

// MockDuePopper はDuePopperのモック
type MockDuePopper struct {
	mock.Mock
}

func (m *MockDuePopper) PopDue(ctx context.Context, asOf time.Time, limit int) ([]notify.DueReminder, error) {
	args := m.Called(ctx, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notify.DueReminder), args.Error(1)
}

// MockSender はnotify.Senderのモック
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, payload notification.Payload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func TestReminderDispatcher_Dispatch(t *testing.T) {
	t.Run("発火対象を順に送信する", func(t *testing.T) {
		popper := new(MockDuePopper)
		sender := new(MockSender)
		d := NewReminderDispatcher(popper, sender, time.Minute)

		due := []notify.DueReminder{
			{Handle: "h-1", Payload: notification.Payload{ReservationID: "res-1"}},
			{Handle: "h-2", Payload: notification.Payload{ReservationID: "res-2"}},
		}
		popper.On("PopDue", mock.Anything, mock.Anything, dispatchBatch).Return(due, nil)
		sender.On("Send", mock.Anything, due[0].Payload).Return(nil)
		sender.On("Send", mock.Anything, due[1].Payload).Return(nil)

		d.dispatch(context.Background())

		popper.AssertExpectations(t)
		sender.AssertExpectations(t)
	})

	t.Run("一部の送信失敗は残りを妨げない", func(t *testing.T) {
		popper := new(MockDuePopper)
		sender := new(MockSender)
		d := NewReminderDispatcher(popper, sender, time.Minute)

		due := []notify.DueReminder{
			{Handle: "h-1", Payload: notification.Payload{ReservationID: "res-1"}},
			{Handle: "h-2", Payload: notification.Payload{ReservationID: "res-2"}},
		}
		popper.On("PopDue", mock.Anything, mock.Anything, dispatchBatch).Return(due, nil)
		sender.On("Send", mock.Anything, due[0].Payload).Return(assert.AnError)
		sender.On("Send", mock.Anything, due[1].Payload).Return(nil)

		d.dispatch(context.Background())

		sender.AssertExpectations(t)
	})

	t.Run("取得失敗でもパニックしない", func(t *testing.T) {
		popper := new(MockDuePopper)
		sender := new(MockSender)
		d := NewReminderDispatcher(popper, sender, time.Minute)

		popper.On("PopDue", mock.Anything, mock.Anything, dispatchBatch).Return(nil, assert.AnError)

		d.dispatch(context.Background())

		sender.AssertNotCalled(t, "Send")
	})
}

func TestReminderDispatcher_StartStop(t *testing.T) {
	popper := new(MockDuePopper)
	sender := new(MockSender)
	popper.On("PopDue", mock.Anything, mock.Anything, dispatchBatch).
		Return([]notify.DueReminder{}, nil).Maybe()

	d := NewReminderDispatcher(popper, sender, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go d.Start(ctx)
	time.Sleep(120 * time.Millisecond)
	d.Stop()

	select {
	case <-d.doneCh:
	case <-time.After(time.Second):
		t.Error("dispatcher did not stop in time")
	}
}
