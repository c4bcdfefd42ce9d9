package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-venue-reservation/internal/application"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
)

// MockBookingService はBookingServiceInterfaceのモック
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockBookingService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockBookingService) GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockBookingService) ConfirmReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockBookingService) CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func sampleReservation(status reservation.Status) *reservation.Reservation {
	startAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	return &reservation.Reservation{
		ID:        "res-123",
		VenueID:   "venue-123",
		UserID:    "user-123",
		StartAt:   startAt,
		EndAt:     startAt.Add(time.Hour),
		Status:    status,
		CreatedAt: startAt.Add(-24 * time.Hour),
		UpdatedAt: startAt.Add(-24 * time.Hour),
	}
}

func TestReservationHandler_Create(t *testing.T) {
	e := NewTestEcho()

	newRequest := func(body string) (*http.Request, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodPost, "/reservations", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("X-User-ID", "user-123")
		return req, httptest.NewRecorder()
	}

	t.Run("正常に予約を作成できる", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("CreateReservation", mock.Anything, mock.MatchedBy(func(in application.CreateReservationInput) bool {
			return in.VenueID == "venue-123" && in.UserID == "user-123"
		})).Return(sampleReservation(reservation.StatusPending), nil)

		handler := NewReservationHandler(mockService)

		req, rec := newRequest(`{"venue_id": "venue-123", "start_at": "2025-06-02T10:00:00Z"}`)
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "res-123", resp.ID)
		assert.Equal(t, "pending", resp.Status)

		mockService.AssertExpectations(t)
	})

	t.Run("ユーザーIDヘッダーがないと401", func(t *testing.T) {
		handler := NewReservationHandler(new(MockBookingService))

		req := httptest.NewRequest(http.MethodPost, "/reservations",
			strings.NewReader(`{"venue_id": "venue-123", "start_at": "2025-06-02T10:00:00Z"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})

	t.Run("開始時刻の形式が不正なら400", func(t *testing.T) {
		handler := NewReservationHandler(new(MockBookingService))

		req, rec := newRequest(`{"venue_id": "venue-123", "start_at": "10時"}`)
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	})

	t.Run("スロット競合は409", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("CreateReservation", mock.Anything, mock.Anything).
			Return(nil, reservation.ErrSlotTaken)
		handler := NewReservationHandler(mockService)

		req, rec := newRequest(`{"venue_id": "venue-123", "start_at": "2025-06-02T10:00:00Z"}`)
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusConflict, he.Code)
	})

	t.Run("予約ウィンドウ外は422", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("CreateReservation", mock.Anything, mock.Anything).
			Return(nil, reservation.ErrOutOfWindow)
		handler := NewReservationHandler(mockService)

		req, rec := newRequest(`{"venue_id": "venue-123", "start_at": "2025-06-02T10:00:00Z"}`)
		c := e.NewContext(req, rec)

		err := handler.Create(c)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnprocessableEntity, he.Code)
	})
}

func TestReservationHandler_Confirm(t *testing.T) {
	e := NewTestEcho()

	doConfirm := func(mockService *MockBookingService) (*echo.HTTPError, *httptest.ResponseRecorder, error) {
		handler := NewReservationHandler(mockService)
		req := httptest.NewRequest(http.MethodPost, "/reservations/res-123/confirm", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("res-123")

		err := handler.Confirm(c)
		var he *echo.HTTPError
		if err != nil {
			require.ErrorAs(t, err, &he)
		}
		return he, rec, err
	}

	t.Run("正常に確定できる", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("ConfirmReservation", mock.Anything, "res-123").
			Return(sampleReservation(reservation.StatusConfirmed), nil)

		_, rec, err := doConfirm(mockService)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "confirmed", resp.Status)
	})

	t.Run("不正な遷移は409", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("ConfirmReservation", mock.Anything, "res-123").
			Return(nil, reservation.ErrInvalidTransition)

		he, _, err := doConfirm(mockService)

		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, he.Code)
	})

	t.Run("存在しない予約は404", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("ConfirmReservation", mock.Anything, "res-123").
			Return(nil, reservation.ErrReservationNotFound)

		he, _, err := doConfirm(mockService)

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, he.Code)
	})
}

func TestReservationHandler_Cancel(t *testing.T) {
	e := NewTestEcho()

	t.Run("正常にキャンセルできる", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("CancelReservation", mock.Anything, "res-123").
			Return(sampleReservation(reservation.StatusCancelled), nil)

		handler := NewReservationHandler(mockService)
		req := httptest.NewRequest(http.MethodPost, "/reservations/res-123/cancel", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("res-123")

		err := handler.Cancel(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "cancelled", resp.Status)
	})
}

func TestReservationHandler_GetUserReservations(t *testing.T) {
	e := NewTestEcho()

	t.Run("自分の予約一覧を取得できる", func(t *testing.T) {
		mockService := new(MockBookingService)
		mockService.On("GetUserReservations", mock.Anything, "user-123", 10, 0).
			Return([]*reservation.Reservation{sampleReservation(reservation.StatusConfirmed)}, nil)

		handler := NewReservationHandler(mockService)
		req := httptest.NewRequest(http.MethodGet, "/reservations?limit=10", nil)
		req.Header.Set("X-User-ID", "user-123")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.GetUserReservations(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp []ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "user-123", resp[0].UserID)
	})

	t.Run("ユーザーIDヘッダーがないと401", func(t *testing.T) {
		handler := NewReservationHandler(new(MockBookingService))
		req := httptest.NewRequest(http.MethodGet, "/reservations", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler.GetUserReservations(c)

		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusUnauthorized, he.Code)
	})
}
