package handler

import (
	"context"

	"github.com/sanosuguru/go-venue-reservation/internal/application"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/venue"
)

// VenueServiceInterface は店舗サービスのインターフェース
type VenueServiceInterface interface {
	CreateVenue(ctx context.Context, input application.CreateVenueInput) (*venue.Venue, error)
	GetVenue(ctx context.Context, id string) (*venue.Venue, error)
	ListVenues(ctx context.Context, limit, offset int) ([]*venue.Venue, error)
	GetAvailability(ctx context.Context, venueID, date string) ([]schedule.TimeSlot, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	GetUserReservations(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error)
	ConfirmReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error)
}
