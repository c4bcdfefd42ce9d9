package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-venue-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/venue"
)

// domainHTTPError はドメインエラーをHTTPステータスへ対応付ける
//
//	404: 対象が存在しない
//	409: スロット競合・不正な状態遷移
//	422: 予約ウィンドウ外・スロット境界不一致
func domainHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, venue.ErrVenueNotFound),
		errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, notification.ErrReminderNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, reservation.ErrSlotTaken),
		errors.Is(err, reservation.ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, reservation.ErrOutOfWindow),
		errors.Is(err, reservation.ErrMisaligned),
		errors.Is(err, reservation.ErrNotElapsed):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, venue.ErrVenueNameRequired),
		errors.Is(err, venue.ErrInvalidTimezone),
		errors.Is(err, venue.ErrInvalidGranularity),
		errors.Is(err, venue.ErrHoursRequired),
		errors.Is(err, venue.ErrInvalidHours),
		errors.Is(err, reservation.ErrVenueIDRequired),
		errors.Is(err, reservation.ErrUserIDRequired),
		errors.Is(err, reservation.ErrInvalidInterval):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
