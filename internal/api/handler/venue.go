package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-venue-reservation/internal/application"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-venue-reservation/internal/domain/venue"
)

type VenueHandler struct {
	venueService VenueServiceInterface
}

func NewVenueHandler(venueService VenueServiceInterface) *VenueHandler {
	return &VenueHandler{venueService: venueService}
}

type DayHoursRequest struct {
	Open  string `json:"open" validate:"required" example:"09:00"`
	Close string `json:"close" validate:"required" example:"18:00"`
}

type CreateVenueRequest struct {
	Name               string                     `json:"name" validate:"required" example:"貸し会議室うめだ"`
	Address            string                     `json:"address" example:"大阪市北区1-2-3"`
	Timezone           string                     `json:"timezone" validate:"required" example:"Asia/Tokyo"`
	GranularityMinutes int                        `json:"granularity_minutes" example:"60"`
	Hours              map[string]DayHoursRequest `json:"hours" validate:"required"`
}

type VenueResponse struct {
	ID                 string            `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name               string            `json:"name" example:"貸し会議室うめだ"`
	Address            string            `json:"address" example:"大阪市北区1-2-3"`
	Timezone           string            `json:"timezone" example:"Asia/Tokyo"`
	GranularityMinutes int               `json:"granularity_minutes" example:"60"`
	Hours              map[string]string `json:"hours"`
	CreatedAt          string            `json:"created_at" example:"2025-06-01T10:00:00+09:00"`
	UpdatedAt          string            `json:"updated_at" example:"2025-06-01T10:00:00+09:00"`
}

type TimeSlotResponse struct {
	StartAt   string `json:"start_at" example:"2025-06-02T10:00:00+09:00"`
	EndAt     string `json:"end_at" example:"2025-06-02T11:00:00+09:00"`
	Available bool   `json:"available" example:"true"`
}

type AvailabilityResponse struct {
	VenueID string             `json:"venue_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Date    string             `json:"date" example:"2025-06-02"`
	Slots   []TimeSlotResponse `json:"slots"`
}

// weekdayNames はリクエスト/レスポンスの営業時間キー
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseClock は "09:00" 形式を0時からの経過分へ変換する
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func toWeeklyHours(req map[string]DayHoursRequest) (venue.WeeklyHours, bool) {
	hours := venue.WeeklyHours{}
	for name, h := range req {
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, false
		}
		open, ok := parseClock(h.Open)
		if !ok {
			return nil, false
		}
		close, ok := parseClock(h.Close)
		if !ok {
			return nil, false
		}
		hours[wd] = venue.DayHours{Open: open, Close: close}
	}
	return hours, true
}

func formatClock(minutes int) string {
	return time.Date(0, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format("15:04")
}

func toVenueResponse(v *venue.Venue) *VenueResponse {
	hours := make(map[string]string, len(v.Hours))
	for name, wd := range weekdayNames {
		if h, ok := v.Hours[wd]; ok {
			hours[name] = formatClock(h.Open) + "-" + formatClock(h.Close)
		}
	}
	return &VenueResponse{
		ID:                 v.ID,
		Name:               v.Name,
		Address:            v.Address,
		Timezone:           v.Timezone,
		GranularityMinutes: int(v.Granularity.Minutes()),
		Hours:              hours,
		CreatedAt:          v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          v.UpdatedAt.Format(time.RFC3339),
	}
}

// Create godoc
// @Summary 店舗を作成
// @Description 営業時間とスロット粒度を持つ店舗を登録します
// @Tags venues
// @Accept json
// @Produce json
// @Param request body CreateVenueRequest true "店舗情報"
// @Success 201 {object} VenueResponse
// @Failure 400 {object} map[string]string
// @Router /venues [post]
func (h *VenueHandler) Create(c echo.Context) error {
	var req CreateVenueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	hours, ok := toWeeklyHours(req.Hours)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "営業時間の形式が不正です")
	}

	granularity := venue.DefaultGranularity
	if req.GranularityMinutes > 0 {
		granularity = time.Duration(req.GranularityMinutes) * time.Minute
	}

	v, err := h.venueService.CreateVenue(c.Request().Context(), application.CreateVenueInput{
		Name:        req.Name,
		Address:     req.Address,
		Timezone:    req.Timezone,
		Granularity: granularity,
		Hours:       hours,
	})
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusCreated, toVenueResponse(v))
}

// GetByID godoc
// @Summary 店舗を取得
// @Description 指定IDの店舗を取得します
// @Tags venues
// @Produce json
// @Param id path string true "店舗ID"
// @Success 200 {object} VenueResponse
// @Failure 404 {object} map[string]string
// @Router /venues/{id} [get]
func (h *VenueHandler) GetByID(c echo.Context) error {
	v, err := h.venueService.GetVenue(c.Request().Context(), c.Param("id"))
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, toVenueResponse(v))
}

// List godoc
// @Summary 店舗一覧を取得
// @Tags venues
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} VenueResponse
// @Router /venues [get]
func (h *VenueHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	venues, err := h.venueService.ListVenues(c.Request().Context(), limit, offset)
	if err != nil {
		return domainHTTPError(err)
	}

	responses := make([]*VenueResponse, len(venues))
	for i, v := range venues {
		responses[i] = toVenueResponse(v)
	}
	return c.JSON(http.StatusOK, responses)
}

// Availability godoc
// @Summary 指定日の空き状況を取得
// @Description 営業時間内の全スロットと予約可否を返します
// @Tags venues
// @Produce json
// @Param id path string true "店舗ID"
// @Param date query string true "対象日（YYYY-MM-DD）" example:"2025-06-02"
// @Success 200 {object} AvailabilityResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /venues/{id}/availability [get]
func (h *VenueHandler) Availability(c echo.Context) error {
	venueID := c.Param("id")

	dateParam := c.QueryParam("date")
	if dateParam == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "dateパラメータが必要です")
	}
	if _, err := time.Parse("2006-01-02", dateParam); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "日付の形式が不正です（YYYY-MM-DD）")
	}

	// 暦日の解釈は店舗タイムゾーンに依存するためサービス側で行う
	slots, err := h.venueService.GetAvailability(c.Request().Context(), venueID, dateParam)
	if err != nil {
		return domainHTTPError(err)
	}
	return c.JSON(http.StatusOK, toAvailabilityResponse(venueID, dateParam, slots))
}

func toAvailabilityResponse(venueID, date string, slots []schedule.TimeSlot) AvailabilityResponse {
	resp := AvailabilityResponse{
		VenueID: venueID,
		Date:    date,
		Slots:   make([]TimeSlotResponse, len(slots)),
	}
	for i, s := range slots {
		resp.Slots[i] = TimeSlotResponse{
			StartAt:   s.StartAt.Format(time.RFC3339),
			EndAt:     s.EndAt.Format(time.RFC3339),
			Available: s.Available,
		}
	}
	return resp
}
