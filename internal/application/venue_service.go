package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/venue"
	redisinfra "github.com/sanosuguru/go-venue-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-venue-reservation/internal/pkg/logger"
)

// VenueService は店舗の管理と日単位の空き状況照会を提供する
type VenueService struct {
	venueRepo       venue.Repository
	reservationRepo reservation.Repository
	cache           redisinfra.AvailabilityCacheInterface
	cacheTTL        time.Duration
}

func NewVenueService(
	vr venue.Repository,
	rr reservation.Repository,
	cache redisinfra.AvailabilityCacheInterface,
	cacheTTL time.Duration,
) *VenueService {
	return &VenueService{
		venueRepo:       vr,
		reservationRepo: rr,
		cache:           cache,
		cacheTTL:        cacheTTL,
	}
}

type CreateVenueInput struct {
	Name        string
	Address     string
	Timezone    string
	Granularity time.Duration
	Hours       venue.WeeklyHours
}

func (s *VenueService) CreateVenue(ctx context.Context, input CreateVenueInput) (*venue.Venue, error) {
	v := venue.NewVenue(input.Name, input.Address, input.Timezone, input.Granularity, input.Hours)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := s.venueRepo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("店舗作成に失敗: %w", err)
	}
	return v, nil
}

func (s *VenueService) GetVenue(ctx context.Context, id string) (*venue.Venue, error) {
	return s.venueRepo.GetByID(ctx, id)
}

func (s *VenueService) ListVenues(ctx context.Context, limit, offset int) ([]*venue.Venue, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.venueRepo.List(ctx, limit, offset)
}

// GetAvailability は指定日の全スロットと空き状況を返す
// 営業日判定とスロット生成は店舗のタイムゾーンで行う
//
// 日付文字列（YYYY-MM-DD）は店舗タイムゾーンの暦日として解釈する。
// UTCで解釈すると、UTCより西の店舗では前日のスロットを計算してしまう
func (s *VenueService) GetAvailability(ctx context.Context, venueID, date string) ([]schedule.TimeSlot, error) {
	v, err := s.venueRepo.GetByID(ctx, venueID)
	if err != nil {
		return nil, err
	}
	loc, err := v.Location()
	if err != nil {
		return nil, err
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, fmt.Errorf("日付の解釈に失敗: %w", err)
	}
	dayKey := day.Format("2006-01-02")

	if s.cache != nil {
		cached, err := s.cache.GetDay(ctx, v.ID, dayKey)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("空き状況キャッシュの取得に失敗",
				zap.String("venue_id", v.ID), zap.String("day", dayKey), zap.Error(err))
		}
	}

	slots, err := schedule.Slots(v, day)
	if err != nil {
		return nil, err
	}
	if len(slots) > 0 {
		reservations, err := s.reservationRepo.ListActiveInRange(
			ctx, v.ID, slots[0].StartAt, slots[len(slots)-1].EndAt)
		if err != nil {
			return nil, fmt.Errorf("予約一覧の取得に失敗: %w", err)
		}
		slots = schedule.MarkAvailability(slots, reservations)
	}

	if s.cache != nil {
		if err := s.cache.SetDay(ctx, v.ID, dayKey, slots, s.cacheTTL); err != nil {
			logger.Warn("空き状況キャッシュの保存に失敗",
				zap.String("venue_id", v.ID), zap.String("day", dayKey), zap.Error(err))
		}
	}
	return slots, nil
}
