package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/venue"
	redisinfra "github.com/sanosuguru/go-venue-reservation/internal/infrastructure/redis"
)

func newVenueTestService() (*VenueService, *MockVenueRepository, *MockReservationRepository, *MockAvailabilityCache) {
	venueRepo := new(MockVenueRepository)
	resRepo := new(MockReservationRepository)
	cache := new(MockAvailabilityCache)
	svc := NewVenueService(venueRepo, resRepo, cache, 30*time.Second)
	return svc, venueRepo, resRepo, cache
}

func TestVenueService_GetAvailability_CacheMiss(t *testing.T) {
	svc, venueRepo, resRepo, cache := newVenueTestService()
	ctx := context.Background()
	v := newTestVenue()

	venueRepo.On("GetByID", ctx, "venue-1").Return(v, nil)
	cache.On("GetDay", ctx, "venue-1", "2025-06-02").Return(nil, redisinfra.ErrCacheMiss)

	// 10:00-11:00 が予約済み
	booked := []*reservation.Reservation{
		{
			ID:      "res-1",
			VenueID: "venue-1",
			StartAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			EndAt:   time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC),
			Status:  reservation.StatusConfirmed,
		},
	}
	resRepo.On("ListActiveInRange", ctx, "venue-1",
		time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)).
		Return(booked, nil)
	cache.On("SetDay", ctx, "venue-1", "2025-06-02", mock.AnythingOfType("[]schedule.TimeSlot"), 30*time.Second).
		Return(nil)

	slots, err := svc.GetAvailability(ctx, "venue-1", "2025-06-02")

	require.NoError(t, err)
	require.Len(t, slots, 9) // 09:00-18:00 を1時間刻み
	assert.True(t, slots[0].Available)
	assert.False(t, slots[1].Available) // 10:00-11:00
	assert.True(t, slots[2].Available)

	cache.AssertExpectations(t)
	resRepo.AssertExpectations(t)
}

func TestVenueService_GetAvailability_CacheHit(t *testing.T) {
	svc, venueRepo, resRepo, cache := newVenueTestService()
	ctx := context.Background()
	v := newTestVenue()

	cached := []schedule.TimeSlot{
		{
			StartAt:   time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
			EndAt:     time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
			Available: true,
		},
	}

	venueRepo.On("GetByID", ctx, "venue-1").Return(v, nil)
	cache.On("GetDay", ctx, "venue-1", "2025-06-02").Return(cached, nil)

	slots, err := svc.GetAvailability(ctx, "venue-1", "2025-06-02")

	require.NoError(t, err)
	assert.Equal(t, cached, slots)
	resRepo.AssertNotCalled(t, "ListActiveInRange")
}

func TestVenueService_GetAvailability_ClosedDay(t *testing.T) {
	svc, venueRepo, resRepo, cache := newVenueTestService()
	ctx := context.Background()

	v := newTestVenue()
	delete(v.Hours, time.Sunday)

	venueRepo.On("GetByID", ctx, "venue-1").Return(v, nil)
	cache.On("GetDay", ctx, "venue-1", "2025-06-01").Return(nil, redisinfra.ErrCacheMiss)
	cache.On("SetDay", ctx, "venue-1", "2025-06-01", mock.AnythingOfType("[]schedule.TimeSlot"), 30*time.Second).
		Return(nil)

	// 2025-06-01 は日曜
	slots, err := svc.GetAvailability(ctx, "venue-1", "2025-06-01")

	require.NoError(t, err)
	assert.Empty(t, slots)
	resRepo.AssertNotCalled(t, "ListActiveInRange")
}

func TestVenueService_GetAvailability_VenueNotFound(t *testing.T) {
	svc, venueRepo, _, _ := newVenueTestService()
	ctx := context.Background()

	venueRepo.On("GetByID", ctx, "missing").Return(nil, venue.ErrVenueNotFound)

	slots, err := svc.GetAvailability(ctx, "missing", "2025-06-02")

	require.Error(t, err)
	assert.Nil(t, slots)
	assert.ErrorIs(t, err, venue.ErrVenueNotFound)
}

func TestVenueService_GetAvailability_WestOfUTC(t *testing.T) {
	svc, venueRepo, resRepo, cache := newVenueTestService()
	ctx := context.Background()

	// UTCより西の店舗。問い合わせ日をUTCの瞬間として解釈すると
	// 店舗ローカルでは前日になり、1日ずれたスロットを返してしまう
	v := newTestVenue()
	v.Timezone = "America/New_York"

	venueRepo.On("GetByID", ctx, "venue-1").Return(v, nil)
	cache.On("GetDay", ctx, "venue-1", "2025-06-02").Return(nil, redisinfra.ErrCacheMiss)
	resRepo.On("ListActiveInRange", ctx, "venue-1",
		mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
		Return([]*reservation.Reservation{}, nil)
	cache.On("SetDay", ctx, "venue-1", "2025-06-02", mock.AnythingOfType("[]schedule.TimeSlot"), 30*time.Second).
		Return(nil)

	slots, err := svc.GetAvailability(ctx, "venue-1", "2025-06-02")

	require.NoError(t, err)
	require.Len(t, slots, 9)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", slots[0].StartAt.In(loc).Format("2006-01-02"))
	assert.True(t, slots[0].StartAt.Equal(time.Date(2025, 6, 2, 9, 0, 0, 0, loc)))
}

func TestVenueService_CreateVenue(t *testing.T) {
	svc, venueRepo, _, _ := newVenueTestService()
	ctx := context.Background()

	hours := venue.WeeklyHours{
		time.Monday: {Open: 10 * 60, Close: 20 * 60},
	}

	t.Run("正常に作成できる", func(t *testing.T) {
		venueRepo.On("Create", ctx, mock.AnythingOfType("*venue.Venue")).Return(nil).Once()

		v, err := svc.CreateVenue(ctx, CreateVenueInput{
			Name:        "会議室B",
			Timezone:    "Asia/Tokyo",
			Granularity: 30 * time.Minute,
			Hours:       hours,
		})

		require.NoError(t, err)
		assert.Equal(t, "会議室B", v.Name)
		assert.Equal(t, 30*time.Minute, v.Granularity)
	})

	t.Run("名前が空ならエラー", func(t *testing.T) {
		_, err := svc.CreateVenue(ctx, CreateVenueInput{
			Timezone:    "Asia/Tokyo",
			Granularity: 30 * time.Minute,
			Hours:       hours,
		})
		assert.ErrorIs(t, err, venue.ErrVenueNameRequired)
	})
}

func TestVenueService_ListVenues_ClampsLimit(t *testing.T) {
	svc, venueRepo, _, _ := newVenueTestService()
	ctx := context.Background()

	venueRepo.On("List", ctx, 100, 0).Return([]*venue.Venue{}, nil)

	_, err := svc.ListVenues(ctx, 500, -1)

	require.NoError(t, err)
	venueRepo.AssertExpectations(t)
}
